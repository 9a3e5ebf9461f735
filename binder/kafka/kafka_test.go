package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/binder/pubsub"
	"github.com/drblury/bindflow/channel"
	"github.com/drblury/bindflow/internal/runtime/config"
)

func TestRegisteredInDefaultCatalog(t *testing.T) {
	assert.True(t, binder.DefaultCatalog.Has(BinderType))
	assert.Equal(t, binder.KafkaCapabilities, binder.DefaultCatalog.GetCapabilities(BinderType))
}

func TestBuildMapsGroupsToConsumerGroups(t *testing.T) {
	originalPub, originalSub := PublisherFactory, SubscriberFactory
	defer func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	}()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	var pubCfg kafka.PublisherConfig
	var subCfgs []kafka.SubscriberConfig
	PublisherFactory = func(cfg kafka.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		pubCfg = cfg
		return pubSub, nil
	}
	SubscriberFactory = func(cfg kafka.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		subCfgs = append(subCfgs, cfg)
		return pubSub, nil
	}

	brokers := []string{"localhost:9092", "localhost:9093"}
	b, err := Build(context.Background(), config.BinderConfig{Type: BinderType, KafkaBrokers: brokers}, watermill.NopLogger{})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, brokers, pubCfg.Brokers)
	assert.NotNil(t, pubCfg.Marshaler)

	_, err = b.BindConsumer(context.Background(), "orders", "billing", channel.New("a"), nil)
	require.NoError(t, err)
	_, err = b.BindConsumer(context.Background(), "orders", "audit", channel.New("b"), nil)
	require.NoError(t, err)
	// A second member of an existing group reuses its subscription.
	_, err = b.BindConsumer(context.Background(), "orders", "billing", channel.New("c"), nil)
	require.NoError(t, err)

	require.Len(t, subCfgs, 2)
	assert.Equal(t, "billing", subCfgs[0].ConsumerGroup)
	assert.Equal(t, "audit", subCfgs[1].ConsumerGroup)
	assert.Equal(t, brokers, subCfgs[1].Brokers)
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("1", nil)
	key, err := partitionKey("orders", msg)
	require.NoError(t, err)
	assert.Empty(t, key)

	msg.Metadata.Set(pubsub.MetadataPartitionKey, "customer-7")
	key, err = partitionKey("orders", msg)
	require.NoError(t, err)
	assert.Equal(t, "customer-7", key)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), config.BinderConfig{Type: BinderType}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "brokers are required")

	originalPub := PublisherFactory
	defer func() { PublisherFactory = originalPub }()
	boom := errors.New("no brokers reachable")
	PublisherFactory = func(kafka.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
		return nil, boom
	}
	_, err = Build(context.Background(), config.BinderConfig{Type: BinderType, KafkaBrokers: []string{"x:9092"}}, watermill.NopLogger{})
	assert.ErrorIs(t, err, boom)
}

func TestRegisterAddsToCatalog(t *testing.T) {
	catalog := binder.NewCatalog()
	Register(catalog)
	assert.True(t, catalog.Has(BinderType))
	assert.Equal(t, []string{BinderType}, catalog.Names())
}
