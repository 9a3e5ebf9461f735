// Package channel defines the message channel contract shared by static and
// dynamically bound destinations, an in-memory implementation and a static
// channel directory.
package channel

import (
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
)

// ErrClosed is reported when a channel has been closed, for example after its
// destination was unbound.
var ErrClosed = errors.New("bindflow: channel closed")

// Handler consumes a message delivered by a channel. A non-nil error marks the
// delivery as failed.
type Handler func(msg *message.Message) error

// Channel is a named conduit for messages.
type Channel interface {
	// Name returns the destination name the channel was created for.
	Name() string
	// Send delivers msg to the current subscribers. It reports false when the
	// channel is closed, has no subscribers, or a subscriber rejected msg.
	Send(msg *message.Message) bool
	// Subscribe registers h and returns a function removing it again.
	Subscribe(h Handler) (unsubscribe func())
	// Close rejects further sends and closes Done. It is idempotent.
	Close() error
	// Done is closed once the channel is closed.
	Done() <-chan struct{}
}

// Lookup finds statically declared channels.
type Lookup interface {
	Lookup(name string) (Channel, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(name string) (Channel, bool)

func (f LookupFunc) Lookup(name string) (Channel, bool) {
	return f(name)
}
