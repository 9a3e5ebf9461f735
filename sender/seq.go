package sender

import (
	"context"
	"iter"
)

// Func forwards the items of seq and reports the outcome. Sender.Send
// satisfies it.
type Func[T any] func(ctx context.Context, seq iter.Seq2[T, error]) *Result

// FromSlice yields the items of s. Every range starts again from the first
// item.
func FromSlice[T any](s []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, v := range s {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// FromChan yields values received from c until it is closed. Values consumed
// by an earlier range are not replayed.
func FromChan[T any](c <-chan T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v := range c {
			if !yield(v, nil) {
				return
			}
		}
	}
}
