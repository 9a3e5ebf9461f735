// Package sender forwards the items of a sequence to a channel. Every Send
// subscribes to the sequence in its own goroutine; when the sequence reports
// an error it is subscribed to again under a bounded retry policy.
package sender

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"

	"github.com/drblury/bindflow/channel"
	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
	"github.com/drblury/bindflow/internal/runtime/logging"
	"github.com/drblury/bindflow/internal/runtime/metrics"
)

// Defaults of the re-subscription policy used by DefaultBackoff.
const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 100 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// DefaultBackoff re-subscribes up to three times, exponentially from 100ms
// and capped at 5s.
func DefaultBackoff() retry.Backoff {
	return NewBackoff(DefaultMaxRetries, DefaultInitialInterval, DefaultMaxInterval)
}

// NewBackoff builds an exponential backoff. Zero arguments take the defaults.
func NewBackoff(maxRetries int, initial, maxInterval time.Duration) retry.Backoff {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if initial <= 0 {
		initial = DefaultInitialInterval
	}
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}
	b := retry.NewExponential(initial)
	b = retry.WithCappedDuration(maxInterval, b)
	return retry.WithMaxRetries(uint64(maxRetries), b)
}

// Option configures a Sender.
type Option func(*options)

type options struct {
	logger     logging.ServiceLogger
	backoff    func() retry.Backoff
	registerer prometheus.Registerer
}

// WithLogger sets the logger for sequence errors and forward failures.
func WithLogger(log logging.ServiceLogger) Option {
	return func(o *options) { o.logger = log }
}

// WithBackoff sets the re-subscription policy. newBackoff is called once per
// Send since backoffs are stateful.
func WithBackoff(newBackoff func() retry.Backoff) Option {
	return func(o *options) {
		if newBackoff != nil {
			o.backoff = newBackoff
		}
	}
}

// WithMetrics registers the sender collectors with registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(o *options) { o.registerer = registerer }
}

// Sender forwards sequences of T to a channel.
type Sender[T any] struct {
	ch      channel.Channel
	logger  logging.ServiceLogger
	backoff func() retry.Backoff
	metrics *metrics.SenderMetrics
}

// New creates a Sender for ch.
func New[T any](ch channel.Channel, opts ...Option) (*Sender[T], error) {
	if ch == nil {
		return nil, errspkg.ErrChannelRequired
	}

	o := options{backoff: DefaultBackoff}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := metrics.NewSenderMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("register sender metrics: %w", err)
	}

	return &Sender[T]{
		ch:      ch,
		logger:  logging.OrNop(o.logger).With(logging.LogFields{"destination": ch.Name()}),
		backoff: o.backoff,
		metrics: m,
	}, nil
}

// Send subscribes to seq and forwards every item to the channel. It returns
// immediately; the Result completes when the sequence ends, when retries are
// exhausted, when ctx is done or when the channel is closed.
//
// Items are converted with channel.ToMessage. An item the channel rejects is
// logged as a ForwardError and skipped.
func (s *Sender[T]) Send(ctx context.Context, seq iter.Seq2[T, error]) *Result {
	res := newResult()
	if seq == nil {
		res.complete(ErrNilSequence)
		return res
	}
	select {
	case <-s.ch.Done():
		res.complete(channel.ErrClosed)
		return res
	default:
	}

	ctx, cancel := context.WithCancelCause(ctx)
	go s.watch(ctx, cancel, res)
	go func() {
		defer cancel(nil)
		res.complete(s.run(ctx, seq))
	}()
	return res
}

// watch fails the Result as soon as the channel closes or ctx is done, even
// while the sequence is blocked producing its next item.
func (s *Sender[T]) watch(ctx context.Context, cancel context.CancelCauseFunc, res *Result) {
	select {
	case <-s.ch.Done():
		cancel(channel.ErrClosed)
		res.complete(channel.ErrClosed)
	case <-ctx.Done():
		res.complete(context.Cause(ctx))
	}
}

func (s *Sender[T]) run(ctx context.Context, seq iter.Seq2[T, error]) error {
	attempt := 0
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		if attempt > 0 {
			s.metrics.Resubscribed(s.ch.Name())
			s.logger.Debug("Re-subscribing to sequence", logging.LogFields{"attempt": attempt})
		}
		attempt++
		return s.subscribe(ctx, seq)
	})
	if err != nil && ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if err != nil {
		s.logger.Error("Sequence failed, giving up", err, logging.LogFields{"attempts": attempt})
	}
	return err
}

func (s *Sender[T]) subscribe(ctx context.Context, seq iter.Seq2[T, error]) error {
	for item, err := range seq {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err != nil {
			s.logger.Error("Sequence reported an error", err, nil)
			return retry.RetryableError(err)
		}
		s.forward(item)
	}
	return ctx.Err()
}

func (s *Sender[T]) forward(item T) {
	name := s.ch.Name()

	msg, err := channel.ToMessage(item)
	if err != nil {
		s.fail(&ForwardError{Destination: name, Err: err})
		return
	}
	if !s.ch.Send(msg) {
		s.fail(&ForwardError{Destination: name, MessageUUID: msg.UUID, Err: ErrRejected})
		return
	}
	s.metrics.Forwarded(name)
}

func (s *Sender[T]) fail(err *ForwardError) {
	s.logger.Error("Failed to forward item", err, logging.LogFields{"message_uuid": err.MessageUUID})
	s.metrics.ForwardFailed(err.Destination)
}
