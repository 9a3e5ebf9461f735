// Package pubsub implements binder.Binder on top of any Watermill publisher
// and subscriber pair. The concrete binders (local, nats, kafka, rabbitmq)
// differ only in how they build the pair and how a consumer group maps onto
// a subscriber.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/samber/lo"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/channel"
	"github.com/drblury/bindflow/internal/runtime/ids"
	"github.com/drblury/bindflow/internal/runtime/logging"
)

// MetadataPartitionKey carries the partition key of published messages when
// the partition_key property is set.
const MetadataPartitionKey = "bindflow_partition_key"

// SubscriberFactory returns the subscriber serving a consumer group. It is
// called once per group; returning the same subscriber for every group is
// allowed.
type SubscriberFactory func(group string) (message.Subscriber, error)

// Config wires a Binder.
type Config struct {
	Kind         binder.Kind
	Capabilities binder.Capabilities

	Publisher   message.Publisher
	Subscribers SubscriberFactory

	// Topic maps a destination to a transport topic. By default the topic
	// property is used, falling back to the destination name.
	Topic func(name string, props binder.Properties) string

	// Closers are closed after the publisher and subscribers, e.g. a shared
	// broker connection.
	Closers []io.Closer

	// NackUndeliverable nacks messages that no group member accepted. By
	// default they are acked and dropped.
	NackUndeliverable bool

	Logger logging.ServiceLogger
}

// Binder binds channels to Watermill topics.
type Binder struct {
	cfg    Config
	logger logging.ServiceLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	producers   map[string]map[channel.Channel]*producer
	groups      map[groupKey]*group
	subscribers map[string]message.Subscriber

	wg sync.WaitGroup
}

// New creates a Binder. It panics when cfg has no publisher or subscriber
// factory.
func New(cfg Config) *Binder {
	if cfg.Publisher == nil {
		panic("bindflow: pubsub binder requires a publisher")
	}
	if cfg.Subscribers == nil {
		panic("bindflow: pubsub binder requires a subscriber factory")
	}
	if cfg.Topic == nil {
		cfg.Topic = defaultTopic
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Binder{
		cfg:         cfg,
		logger:      logging.OrNop(cfg.Logger).With(logging.LogFields{"binder": cfg.Capabilities.Name}),
		ctx:         ctx,
		cancel:      cancel,
		producers:   make(map[string]map[channel.Channel]*producer),
		groups:      make(map[groupKey]*group),
		subscribers: make(map[string]message.Subscriber),
	}
}

func defaultTopic(name string, props binder.Properties) string {
	return props.Get(binder.PropertyTopic, name)
}

func (b *Binder) Kind() binder.Kind { return b.cfg.Kind }

func (b *Binder) Capabilities() binder.Capabilities { return b.cfg.Capabilities }

type producer struct {
	name    string
	ch      channel.Channel
	binding binder.Binding

	detachOnce  sync.Once
	unsubscribe func()
}

func (p *producer) detach() {
	p.detachOnce.Do(p.unsubscribe)
}

func (b *Binder) BindProducer(ctx context.Context, name string, ch channel.Channel, props binder.Properties) (binder.Binding, error) {
	if ch == nil {
		return nil, binder.NewBindingError(name, binder.RoleProducer, binder.ErrNilChannel)
	}
	if err := ctx.Err(); err != nil {
		return nil, binder.NewBindingError(name, binder.RoleProducer, err)
	}

	topic := b.cfg.Topic(name, props)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, binder.NewBindingError(name, binder.RoleProducer, binder.ErrBinderClosed)
	}

	bound := b.producers[name]
	if existing, ok := bound[ch]; ok {
		return existing.binding, nil
	}
	if bound == nil {
		bound = make(map[channel.Channel]*producer)
		b.producers[name] = bound
	}

	p := &producer{name: name, ch: ch}
	p.unsubscribe = ch.Subscribe(b.publishHandler(name, topic, props))
	p.binding = binder.NewBinding(name, "", binder.RoleProducer, func() error {
		b.removeProducer(p)
		return nil
	})
	bound[ch] = p

	b.logger.Debug("Producer bound", logging.LogFields{"destination": name, "topic": topic})
	return p.binding, nil
}

func (b *Binder) removeProducer(p *producer) {
	b.mu.Lock()
	if bound := b.producers[p.name]; bound[p.ch] == p {
		delete(bound, p.ch)
		if len(bound) == 0 {
			delete(b.producers, p.name)
		}
	}
	b.mu.Unlock()
	p.detach()
}

func (b *Binder) publishHandler(name, topic string, props binder.Properties) channel.Handler {
	partitionKey := props[binder.PropertyPartitionKey]

	return func(msg *message.Message) error {
		out := msg
		if partitionKey != "" {
			out = msg.Copy()
			out.Metadata.Set(MetadataPartitionKey, msg.Metadata.Get(partitionKey))
		}
		if err := b.cfg.Publisher.Publish(topic, out); err != nil {
			b.logger.Error("Failed to publish message", err, logging.LogFields{
				"destination":  name,
				"topic":        topic,
				"message_uuid": msg.UUID,
			})
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
		return nil
	}
}

func (b *Binder) BindConsumer(ctx context.Context, name, groupName string, ch channel.Channel, props binder.Properties) (binder.Binding, error) {
	if ch == nil {
		return nil, binder.NewBindingError(name, binder.RoleConsumer, binder.ErrNilChannel)
	}
	if err := ctx.Err(); err != nil {
		return nil, binder.NewBindingError(name, binder.RoleConsumer, err)
	}
	if groupName == "" {
		groupName = ids.NewGroupName(name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, binder.NewBindingError(name, binder.RoleConsumer, binder.ErrBinderClosed)
	}

	key := groupKey{name: name, group: groupName}
	g, ok := b.groups[key]
	if !ok {
		var err error
		g, err = b.subscribeLocked(key, b.cfg.Topic(name, props))
		if err != nil {
			return nil, binder.NewBindingError(name, binder.RoleConsumer, err)
		}
	}

	m := g.add(ch)
	bnd := binder.NewBinding(name, groupName, binder.RoleConsumer, func() error {
		b.removeMember(g, m)
		return nil
	})
	go func() {
		select {
		case <-ch.Done():
			_ = bnd.Unbind()
		case <-m.removed:
		case <-b.ctx.Done():
		}
	}()

	b.logger.Debug("Consumer bound", logging.LogFields{"destination": name, "group": groupName, "topic": g.topic})
	return bnd, nil
}

func (b *Binder) subscribeLocked(key groupKey, topic string) (*group, error) {
	sub, ok := b.subscribers[key.group]
	if !ok {
		var err error
		sub, err = b.cfg.Subscribers(key.group)
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}
		b.subscribers[key.group] = sub
	}

	gctx, cancel := context.WithCancel(b.ctx)
	messages, err := sub.Subscribe(gctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	g := newGroup(gctx, cancel, key, topic)
	b.groups[key] = g

	b.wg.Add(1)
	go b.consume(g, messages)
	return g, nil
}

func (b *Binder) removeMember(g *group, m *member) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if g.remove(m) > 0 {
		return
	}
	if b.groups[g.key] == g {
		delete(b.groups, g.key)
	}
	g.cancel()
}

func (b *Binder) consume(g *group, messages <-chan *message.Message) {
	defer b.wg.Done()

	for {
		select {
		case <-g.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.dispatch(g, msg)
		}
	}
}

func (b *Binder) dispatch(g *group, msg *message.Message) {
	if g.deliver(msg) {
		msg.Ack()
		return
	}

	b.logger.Error("No group member accepted message", errors.New("undeliverable message"), logging.LogFields{
		"destination":  g.key.name,
		"group":        g.key.group,
		"message_uuid": msg.UUID,
	})
	if b.cfg.NackUndeliverable {
		msg.Nack()
		return
	}
	msg.Ack()
}

// Producers returns the names with at least one bound producer, sorted.
func (b *Binder) Producers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := lo.Keys(b.producers)
	slices.Sort(names)
	return names
}

// Groups returns the consumer groups currently subscribed to name, sorted.
func (b *Binder) Groups(name string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var groups []string
	for key := range b.groups {
		if key.name == name {
			groups = append(groups, key.group)
		}
	}
	slices.Sort(groups)
	return groups
}

// Close detaches every producer, stops every consumer group and closes the
// publisher and subscribers. It is idempotent.
func (b *Binder) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var producers []*producer
	for _, bound := range b.producers {
		producers = append(producers, lo.Values(bound)...)
	}
	closers := make([]io.Closer, 0, len(b.subscribers)+1)
	for _, sub := range b.subscribers {
		closers = append(closers, sub)
	}
	closers = append(closers, b.cfg.Publisher)
	closers = append(closers, b.cfg.Closers...)
	b.producers = map[string]map[channel.Channel]*producer{}
	b.groups = map[groupKey]*group{}
	b.subscribers = map[string]message.Subscriber{}
	b.mu.Unlock()

	for _, p := range producers {
		p.detach()
	}
	b.cancel()
	b.wg.Wait()

	var errs []error
	for _, c := range lo.Uniq(closers) {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
