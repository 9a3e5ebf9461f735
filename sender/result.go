package sender

import (
	"context"
	"sync"
)

// Result is the outcome of a Send. It completes exactly once: successfully
// when the sequence ends, or with the error that stopped the subscription.
type Result struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) complete(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed when the Result completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err returns the outcome. It is nil until Done is closed.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the Result completes or ctx is done.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Failed returns a Result that has already completed with err.
func Failed(err error) *Result {
	r := newResult()
	r.complete(err)
	return r
}
