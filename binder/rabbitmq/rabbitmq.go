// Package rabbitmq provides a RabbitMQ binder on durable fanout exchanges.
// Each consumer group gets its own durable queue bound to the destination's
// exchange, so groups fan out and members of a group compete.
package rabbitmq

import (
	"context"
	"errors"
	"io"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/binder/pubsub"
	"github.com/drblury/bindflow/internal/runtime/logging"
)

// BinderType is the name used to register this binder.
const BinderType = "rabbitmq"

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
	return amqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

func init() {
	Register(binder.DefaultCatalog)
}

// Register adds this binder type to catalog.
func Register(catalog *binder.Catalog) {
	catalog.Register(BinderType, Build, binder.RabbitMQCapabilities)
}

// Build creates a RabbitMQ binder from settings. The connection is shared by
// the publisher and every group subscriber.
func Build(_ context.Context, settings binder.Settings, logger watermill.LoggerAdapter) (binder.Binder, error) {
	url := settings.GetRabbitMQURL()
	if url == "" {
		return nil, errors.New("rabbitmq: URL is required")
	}

	conn, err := ConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   url,
		TLSConfig: nil,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := PublisherFactory(amqp.NewDurablePubSubConfig(url, amqp.GenerateQueueNameTopicName), logger, conn)
	if err != nil {
		return nil, errors.Join(err, closeConnection(conn))
	}

	var closers []io.Closer
	if conn != nil {
		closers = append(closers, conn)
	}

	return pubsub.New(pubsub.Config{
		Kind:         binder.KindRemote,
		Capabilities: binder.RabbitMQCapabilities,
		Publisher:    publisher,
		Subscribers: func(group string) (message.Subscriber, error) {
			cfg := amqp.NewDurablePubSubConfig(url, amqp.GenerateQueueNameTopicNameWithSuffix(group))
			return SubscriberFactory(cfg, logger.With(watermill.LogFields{"group": group}), conn)
		},
		Closers: closers,
		Logger:  logging.NewWatermillServiceLogger(logger),
	}), nil
}

func closeConnection(conn *amqp.ConnectionWrapper) error {
	if conn == nil {
		return nil
	}
	return conn.Close()
}
