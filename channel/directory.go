package channel

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
)

// Directory holds statically declared channels by name. It implements Lookup
// and is safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewDirectory creates a Directory populated with channels, keyed by Name().
func NewDirectory(channels ...Channel) (*Directory, error) {
	d := &Directory{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		if err := d.Register(ch); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds ch under ch.Name(). Names must be unique.
func (d *Directory) Register(ch Channel) error {
	if ch == nil {
		return errspkg.ErrChannelRequired
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.channels == nil {
		d.channels = make(map[string]Channel)
	}
	if _, exists := d.channels[ch.Name()]; exists {
		return fmt.Errorf("bindflow: channel %q already registered", ch.Name())
	}
	d.channels[ch.Name()] = ch
	return nil
}

func (d *Directory) Lookup(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[name]
	return ch, ok
}

// Names returns the registered channel names in sorted order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	names := lo.Keys(d.channels)
	d.mu.RUnlock()
	slices.Sort(names)
	return names
}
