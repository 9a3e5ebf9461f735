package binder

// Capabilities describes what the transport behind a Binder supports.
type Capabilities struct {
	// Name is the binder type, e.g. "nats".
	Name string

	// SupportsOrdering indicates messages on a destination are delivered in
	// publish order.
	SupportsOrdering bool

	// SupportsConsumerGroups indicates groups are load-shared by the broker
	// across processes, not only within this process.
	SupportsConsumerGroups bool

	// SupportsDurableGroups indicates a group keeps receiving messages
	// published while none of its members were bound.
	SupportsDurableGroups bool

	// SupportsAck indicates the transport supports explicit acknowledgement.
	SupportsAck bool

	// SupportsNack indicates the transport supports negative acknowledgement
	// (redelivery).
	SupportsNack bool

	// SupportsPartitioning indicates the partition_key property is honoured.
	SupportsPartitioning bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64
}

// SupportsReliableDelivery returns true if the transport supports at-least-once
// delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the built-in binders.
var (
	LocalCapabilities = Capabilities{
		Name:             "local",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	NATSCapabilities = Capabilities{
		Name:                   "nats",
		SupportsConsumerGroups: true,
		MaxMessageSize:         1048576, // Default 1MB
	}

	KafkaCapabilities = Capabilities{
		Name:                   "kafka",
		SupportsOrdering:       true,
		SupportsConsumerGroups: true,
		SupportsDurableGroups:  true,
		SupportsAck:            true,
		SupportsPartitioning:   true,
		MaxMessageSize:         1048576, // Default 1MB
	}

	RabbitMQCapabilities = Capabilities{
		Name:                   "rabbitmq",
		SupportsOrdering:       true,
		SupportsConsumerGroups: true,
		SupportsDurableGroups:  true,
		SupportsAck:            true,
		SupportsNack:           true,
	}
)
