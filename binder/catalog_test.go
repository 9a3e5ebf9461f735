package binder

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/bindflow/internal/runtime/config"
)

func TestCatalogRegisterAndBuild(t *testing.T) {
	c := NewCatalog()
	assert.Empty(t, c.Names())

	var gotSettings Settings
	c.Register("stub", func(_ context.Context, s Settings, _ watermill.LoggerAdapter) (Binder, error) {
		gotSettings = s
		return &stubBinder{name: "stub"}, nil
	}, Capabilities{Name: "stub", SupportsOrdering: true})

	assert.True(t, c.Has("stub"))
	assert.False(t, c.Has("other"))
	assert.Equal(t, []string{"stub"}, c.Names())
	assert.True(t, c.GetCapabilities("stub").SupportsOrdering)
	assert.Equal(t, Capabilities{Name: "other"}, c.GetCapabilities("other"))

	settings := config.BinderConfig{Type: "stub", NATSURL: "nats://x"}
	b, err := c.Build(context.Background(), settings, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", b.Capabilities().Name)
	assert.Equal(t, "nats://x", gotSettings.GetNATSURL())
}

func TestCatalogBuildErrors(t *testing.T) {
	c := NewCatalog()
	_, err := c.Build(context.Background(), nil, nil)
	assert.Error(t, err)

	_, err = c.Build(context.Background(), config.BinderConfig{Type: "missing"}, nil)
	assert.ErrorContains(t, err, `unknown binder type "missing"`)
}

func TestNewRegistryFromConfig(t *testing.T) {
	c := NewCatalog()
	built := map[string]*stubBinder{}
	c.Register("stub", func(_ context.Context, s Settings, _ watermill.LoggerAdapter) (Binder, error) {
		b := &stubBinder{name: s.GetEnvironment()["id"]}
		built[b.name] = b
		return b, nil
	}, Capabilities{Name: "stub"})

	cfg := &config.Config{
		DefaultBinder: "second",
		Binders: map[string]config.BinderConfig{
			"first":  {Type: "stub", Environment: map[string]string{"id": "first"}},
			"second": {Type: "stub", Environment: map[string]string{"id": "second"}},
		},
	}

	r, err := NewRegistryFromConfig(context.Background(), cfg, c, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, r.Names())

	got, err := r.Get("")
	require.NoError(t, err)
	assert.Same(t, built["second"], got)
}

func TestNewRegistryFromConfigClosesOnFailure(t *testing.T) {
	c := NewCatalog()
	var good *stubBinder
	c.Register("good", func(context.Context, Settings, watermill.LoggerAdapter) (Binder, error) {
		good = &stubBinder{}
		return good, nil
	}, Capabilities{})
	c.Register("bad", func(context.Context, Settings, watermill.LoggerAdapter) (Binder, error) {
		return nil, errors.New("cannot connect")
	}, Capabilities{})

	cfg := &config.Config{Binders: map[string]config.BinderConfig{
		"a": {Type: "good"},
		"b": {Type: "bad"},
	}}

	_, err := NewRegistryFromConfig(context.Background(), cfg, c, nil)
	assert.ErrorContains(t, err, "build binder b: cannot connect")
	require.NotNil(t, good)
	assert.Equal(t, 1, good.closed)
}

func TestNewRegistryFromConfigValidates(t *testing.T) {
	_, err := NewRegistryFromConfig(context.Background(), nil, nil, nil)
	assert.Error(t, err)

	_, err = NewRegistryFromConfig(context.Background(), &config.Config{}, nil, nil)
	assert.ErrorContains(t, err, "at least one binder is required")
}
