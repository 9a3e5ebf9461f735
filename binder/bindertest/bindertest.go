// Package bindertest provides a recording binder for tests. It counts and
// records every bind call, can inject failures and delays, and delegates to a
// local binder so messages still flow between producers and consumers.
package bindertest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/binder/local"
	"github.com/drblury/bindflow/channel"
	"github.com/drblury/bindflow/internal/runtime/logging"
)

// Call records a single bind invocation.
type Call struct {
	Role    binder.Role
	Name    string
	Group   string
	Channel channel.Channel
	Props   binder.Properties
}

// Binder is a binder.Binder that records its calls.
type Binder struct {
	delegate binder.Binder

	producerCalls *atomic.Int64
	consumerCalls *atomic.Int64
	closeCalls    *atomic.Int64
	bindDelay     *atomic.Duration

	mu       sync.Mutex
	calls    []Call
	failures map[failureKey][]error
}

type failureKey struct {
	role binder.Role
	name string
}

// New creates a recording binder backed by a local binder.
func New() *Binder {
	return NewWithDelegate(local.New(logging.NewNopServiceLogger()))
}

// NewWithDelegate creates a recording binder in front of delegate.
func NewWithDelegate(delegate binder.Binder) *Binder {
	return &Binder{
		delegate:      delegate,
		producerCalls: atomic.NewInt64(0),
		consumerCalls: atomic.NewInt64(0),
		closeCalls:    atomic.NewInt64(0),
		bindDelay:     atomic.NewDuration(0),
		failures:      make(map[failureKey][]error),
	}
}

func (b *Binder) Kind() binder.Kind { return binder.KindTest }

func (b *Binder) Capabilities() binder.Capabilities {
	caps := b.delegate.Capabilities()
	caps.Name = "test"
	return caps
}

// FailProducer makes the next BindProducer call for name fail with err.
// Repeated calls queue further failures.
func (b *Binder) FailProducer(name string, err error) {
	b.fail(binder.RoleProducer, name, err)
}

// FailConsumer makes the next BindConsumer call for name fail with err.
func (b *Binder) FailConsumer(name string, err error) {
	b.fail(binder.RoleConsumer, name, err)
}

func (b *Binder) fail(role binder.Role, name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := failureKey{role: role, name: name}
	b.failures[key] = append(b.failures[key], err)
}

// SetBindDelay makes every bind call sleep for d before doing any work, which
// widens race windows in concurrency tests.
func (b *Binder) SetBindDelay(d time.Duration) {
	b.bindDelay.Store(d)
}

func (b *Binder) BindProducer(ctx context.Context, name string, ch channel.Channel, props binder.Properties) (binder.Binding, error) {
	b.producerCalls.Inc()
	if err := b.record(ctx, Call{Role: binder.RoleProducer, Name: name, Channel: ch, Props: props}); err != nil {
		return nil, binder.NewBindingError(name, binder.RoleProducer, err)
	}
	return b.delegate.BindProducer(ctx, name, ch, props)
}

func (b *Binder) BindConsumer(ctx context.Context, name, group string, ch channel.Channel, props binder.Properties) (binder.Binding, error) {
	b.consumerCalls.Inc()
	if err := b.record(ctx, Call{Role: binder.RoleConsumer, Name: name, Group: group, Channel: ch, Props: props}); err != nil {
		return nil, binder.NewBindingError(name, binder.RoleConsumer, err)
	}
	return b.delegate.BindConsumer(ctx, name, group, ch, props)
}

func (b *Binder) record(ctx context.Context, call Call) error {
	if d := b.bindDelay.Load(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)

	key := failureKey{role: call.Role, name: call.Name}
	if queued := b.failures[key]; len(queued) > 0 {
		b.failures[key] = queued[1:]
		return queued[0]
	}
	return nil
}

// ProducerCalls returns the number of BindProducer invocations.
func (b *Binder) ProducerCalls() int64 { return b.producerCalls.Load() }

// ConsumerCalls returns the number of BindConsumer invocations.
func (b *Binder) ConsumerCalls() int64 { return b.consumerCalls.Load() }

// CloseCalls returns the number of Close invocations.
func (b *Binder) CloseCalls() int64 { return b.closeCalls.Load() }

// Calls returns a snapshot of every recorded call, in order.
func (b *Binder) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsFor returns the recorded calls for name and role.
func (b *Binder) CallsFor(role binder.Role, name string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Role == role && c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (b *Binder) Close() error {
	b.closeCalls.Inc()
	return b.delegate.Close()
}
