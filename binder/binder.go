// Package binder defines how logical destinations are attached to messaging
// infrastructure. A Binder connects channels to a destination as producer or
// consumer; a Registry selects the Binder for a destination by configuration
// name; a Catalog builds Binders from configuration.
package binder

import (
	"context"
	"sync"

	"github.com/drblury/bindflow/channel"
)

// Kind identifies the family a Binder belongs to.
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	case KindTest:
		return "test"
	default:
		return "unknown"
	}
}

// Role is the side of a destination a Binding attaches to.
type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
)

// Binder attaches channels to destinations.
type Binder interface {
	Kind() Kind
	Capabilities() Capabilities

	// BindProducer arranges for every message sent on ch to be published to
	// the destination name. Binding the same name and channel again returns
	// the existing binding. Another channel bound to the same name gets its
	// own binding over the shared transport resources and both stay live.
	BindProducer(ctx context.Context, name string, ch channel.Channel, props Properties) (Binding, error)

	// BindConsumer delivers messages published to name into ch. Every distinct
	// group receives every message; members of one group share the load. An
	// empty group is replaced by a unique anonymous group.
	BindConsumer(ctx context.Context, name, group string, ch channel.Channel, props Properties) (Binding, error)

	// Close unbinds everything and releases transport resources.
	Close() error
}

// Binding is the live association created by a successful bind.
type Binding interface {
	Name() string
	Group() string
	Role() Role
	// Unbind detaches the binding. It is idempotent.
	Unbind() error
}

type binding struct {
	name   string
	group  string
	role   Role
	once   sync.Once
	unbind func() error
	err    error
}

// NewBinding returns a Binding whose Unbind runs unbind at most once.
func NewBinding(name, group string, role Role, unbind func() error) Binding {
	return &binding{name: name, group: group, role: role, unbind: unbind}
}

func (b *binding) Name() string  { return b.name }
func (b *binding) Group() string { return b.group }
func (b *binding) Role() Role    { return b.role }

func (b *binding) Unbind() error {
	b.once.Do(func() {
		if b.unbind != nil {
			b.err = b.unbind()
		}
	})
	return b.err
}
