// Package kafka provides a Kafka binder. Each consumer group maps onto a
// Kafka consumer group.
package kafka

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/binder/pubsub"
	"github.com/drblury/bindflow/internal/runtime/logging"
)

// BinderType is the name used to register this binder.
const BinderType = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	Register(binder.DefaultCatalog)
}

// Register adds this binder type to catalog.
func Register(catalog *binder.Catalog) {
	catalog.Register(BinderType, Build, binder.KafkaCapabilities)
}

// Build creates a Kafka binder from settings.
func Build(_ context.Context, settings binder.Settings, logger watermill.LoggerAdapter) (binder.Binder, error) {
	brokers := settings.GetKafkaBrokers()
	if len(brokers) == 0 {
		return nil, errors.New("kafka: brokers are required")
	}

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.NewWithPartitioningMarshaler(partitionKey),
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return pubsub.New(pubsub.Config{
		Kind:         binder.KindRemote,
		Capabilities: binder.KafkaCapabilities,
		Publisher:    publisher,
		Subscribers: func(group string) (message.Subscriber, error) {
			return SubscriberFactory(
				kafka.SubscriberConfig{
					Brokers:       brokers,
					Unmarshaler:   kafka.DefaultMarshaler{},
					ConsumerGroup: group,
				},
				logger.With(watermill.LogFields{"group": group}),
			)
		},
		Logger: logging.NewWatermillServiceLogger(logger),
	}), nil
}

// partitionKey routes messages by the key set from the partition_key
// property. Messages without one are spread by the producer.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(pubsub.MetadataPartitionKey), nil
}
