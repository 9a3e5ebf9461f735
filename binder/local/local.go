// Package local provides an in-process binder backed by Watermill's GoChannel
// pub/sub. It is the default binder for tests and single-process deployments.
package local

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/binder/pubsub"
	"github.com/drblury/bindflow/internal/runtime/logging"
)

// BinderType is the name used to register this binder.
const BinderType = "local"

// Factory allows overriding the GoChannel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

func init() {
	Register(binder.DefaultCatalog)
}

// Register adds this binder type to catalog.
func Register(catalog *binder.Catalog) {
	catalog.Register(BinderType, Build, binder.LocalCapabilities)
}

// New creates a local binder. Publishing blocks until every consumer group
// acknowledged the message, so delivery is ordered and synchronous.
func New(logger logging.ServiceLogger) *pubsub.Binder {
	logger = logging.OrNop(logger)
	pubSub := Factory(gochannel.Config{BlockPublishUntilSubscriberAck: true}, logging.NewWatermillAdapter(logger))

	return pubsub.New(pubsub.Config{
		Kind:         binder.KindLocal,
		Capabilities: binder.LocalCapabilities,
		Publisher:    pubSub,
		Subscribers: func(string) (message.Subscriber, error) {
			// Every GoChannel subscription receives every message, so one
			// instance serves all groups.
			return pubSub, nil
		},
		Logger: logger,
	})
}

// Build creates a local binder from settings.
func Build(_ context.Context, _ binder.Settings, logger watermill.LoggerAdapter) (binder.Binder, error) {
	return New(logging.NewWatermillServiceLogger(logger)), nil
}
