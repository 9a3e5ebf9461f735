// Package nats provides a NATS Core binder. Each consumer group maps onto a
// NATS queue group, so members across processes share the load.
package nats

import (
	"context"
	"errors"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/binder/pubsub"
	"github.com/drblury/bindflow/internal/runtime/logging"
)

// BinderType is the name used to register this binder.
const BinderType = "nats"

// Environment keys understood by Build.
const (
	EnvClientName       = "client_name"
	EnvSubscribersCount = "subscribers_count"
	EnvMaxReconnects    = "max_reconnects"
)

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

func init() {
	Register(binder.DefaultCatalog)
}

// Register adds this binder type to catalog.
func Register(catalog *binder.Catalog) {
	catalog.Register(BinderType, Build, binder.NATSCapabilities)
}

// Build creates a NATS binder from settings.
func Build(_ context.Context, settings binder.Settings, logger watermill.LoggerAdapter) (binder.Binder, error) {
	url := settings.GetNATSURL()
	if url == "" {
		return nil, errors.New("nats: URL is required")
	}
	env := binder.Properties(settings.GetEnvironment())

	options, err := connectOptions(env)
	if err != nil {
		return nil, err
	}
	subscribersCount, err := strconv.Atoi(env.Get(EnvSubscribersCount, "1"))
	if err != nil {
		return nil, errors.Join(errors.New("nats: invalid subscribers_count"), err)
	}

	marshaler := &nats.NATSMarshaler{}
	coreNATS := nats.JetStreamConfig{Disabled: true}

	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:         url,
			NatsOptions: options,
			Marshaler:   marshaler,
			JetStream:   coreNATS,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return pubsub.New(pubsub.Config{
		Kind:         binder.KindRemote,
		Capabilities: binder.NATSCapabilities,
		Publisher:    publisher,
		Subscribers: func(group string) (message.Subscriber, error) {
			return SubscriberFactory(
				nats.SubscriberConfig{
					URL:              url,
					QueueGroupPrefix: group,
					SubscribersCount: subscribersCount,
					NatsOptions:      options,
					Unmarshaler:      marshaler,
					JetStream:        coreNATS,
				},
				logger.With(watermill.LogFields{"group": group}),
			)
		},
		Logger: logging.NewWatermillServiceLogger(logger),
	}), nil
}

func connectOptions(env binder.Properties) ([]natsgo.Option, error) {
	options := []natsgo.Option{
		natsgo.Name(env.Get(EnvClientName, "bindflow")),
		natsgo.RetryOnFailedConnect(true),
	}
	if raw := env[EnvMaxReconnects]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Join(errors.New("nats: invalid max_reconnects"), err)
		}
		options = append(options, natsgo.MaxReconnects(n))
	}
	return options, nil
}
