package pubsub

import (
	"context"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/atomic"

	"github.com/drblury/bindflow/channel"
)

type groupKey struct {
	name  string
	group string
}

type member struct {
	ch      channel.Channel
	removed chan struct{}
}

// group is one transport subscription shared round-robin by its members.
type group struct {
	key    groupKey
	topic  string
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	members []*member
	next    *atomic.Uint64
}

func newGroup(ctx context.Context, cancel context.CancelFunc, key groupKey, topic string) *group {
	return &group{
		key:    key,
		topic:  topic,
		ctx:    ctx,
		cancel: cancel,
		next:   atomic.NewUint64(0),
	}
}

func (g *group) add(ch channel.Channel) *member {
	m := &member{ch: ch, removed: make(chan struct{})}
	g.mu.Lock()
	g.members = append(g.members, m)
	g.mu.Unlock()
	return m
}

// remove drops m and returns the number of remaining members.
func (g *group) remove(m *member) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i := slices.Index(g.members, m); i >= 0 {
		g.members = slices.Delete(g.members, i, i+1)
		close(m.removed)
	}
	return len(g.members)
}

// deliver hands msg to the next member in turn, failing over to the others
// when a member rejects it.
func (g *group) deliver(msg *message.Message) bool {
	g.mu.RLock()
	members := slices.Clone(g.members)
	g.mu.RUnlock()

	n := len(members)
	if n == 0 {
		return false
	}

	start := int((g.next.Inc() - 1) % uint64(n))
	for i := range n {
		if members[(start+i)%n].ch.Send(msg) {
			return true
		}
	}
	return false
}
