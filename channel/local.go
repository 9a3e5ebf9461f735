package channel

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/bindflow/internal/runtime/logging"
)

// Local is an in-memory Channel. Send invokes every subscriber synchronously
// on the caller's goroutine, in subscription order. When more than one
// subscriber is registered each receives its own copy of the message.
type Local struct {
	name   string
	logger logging.ServiceLogger

	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64
	closed bool

	done      chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	id      uint64
	handler Handler
}

// Option configures a Local channel.
type Option func(*Local)

// WithLogger sets the logger used for delivery failures.
func WithLogger(log logging.ServiceLogger) Option {
	return func(l *Local) {
		if log != nil {
			l.logger = log
		}
	}
}

// New creates an open Local channel.
func New(name string, opts ...Option) *Local {
	l := &Local{
		name:   name,
		logger: logging.NewNopServiceLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(logging.LogFields{"channel": name})
	return l
}

func (l *Local) Name() string { return l.name }

func (l *Local) Done() <-chan struct{} { return l.done }

func (l *Local) Send(msg *message.Message) bool {
	if msg == nil {
		return false
	}

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return false
	}
	subs := make([]*subscription, len(l.subs))
	copy(subs, l.subs)
	l.mu.RUnlock()

	if len(subs) == 0 {
		l.logger.Debug("No subscribers for message", logging.LogFields{"message_uuid": msg.UUID})
		return false
	}

	delivered := true
	for _, sub := range subs {
		m := msg
		if len(subs) > 1 {
			m = msg.Copy()
		}
		if err := deliver(sub.handler, m); err != nil {
			l.logger.Error("Subscriber rejected message", err, logging.LogFields{"message_uuid": msg.UUID})
			delivered = false
		}
	}
	return delivered
}

func (l *Local) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, &subscription{id: id, handler: h})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.unsubscribe(id) })
	}
}

func (l *Local) unsubscribe(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, sub := range l.subs {
		if sub.id == id {
			l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of registered handlers.
func (l *Local) Subscribers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}

func (l *Local) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.subs = nil
		l.mu.Unlock()
		close(l.done)
	})
	return nil
}

func deliver(h Handler, msg *message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return h(msg)
}
