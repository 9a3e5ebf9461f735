package binder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/samber/lo"

	"github.com/drblury/bindflow/internal/runtime/config"
	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
)

// Settings provides the values a Builder needs. config.BinderConfig
// implements it.
type Settings interface {
	GetType() string
	GetNATSURL() string
	GetKafkaBrokers() []string
	GetRabbitMQURL() string
	GetEnvironment() map[string]string
}

// Builder creates a Binder from settings.
type Builder func(ctx context.Context, settings Settings, logger watermill.LoggerAdapter) (Binder, error)

// Catalog maps binder types to their builders and capabilities. Binder
// packages register themselves with DefaultCatalog from init.
type Catalog struct {
	mu           sync.RWMutex
	builders     map[string]Builder
	capabilities map[string]Capabilities
}

// DefaultCatalog is the global binder catalog.
var DefaultCatalog = NewCatalog()

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		builders:     make(map[string]Builder),
		capabilities: make(map[string]Capabilities),
	}
}

// Register adds a builder and the capabilities of the binders it builds.
func (c *Catalog) Register(binderType string, builder Builder, caps Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[binderType] = builder
	c.capabilities[binderType] = caps
}

// GetCapabilities returns the capabilities for a registered type, or a
// Capabilities carrying only the name if the type is unknown.
func (c *Catalog) GetCapabilities(binderType string) Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if caps, ok := c.capabilities[binderType]; ok {
		return caps
	}
	return Capabilities{Name: binderType}
}

// Build creates a binder using the builder registered for settings.GetType().
func (c *Catalog) Build(ctx context.Context, settings Settings, logger watermill.LoggerAdapter) (Binder, error) {
	if settings == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	binderType := settings.GetType()

	c.mu.RLock()
	builder, ok := c.builders[binderType]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("bindflow: unknown binder type %q (registered: %v)", binderType, c.Names())
	}
	return builder(ctx, settings, logger)
}

// Names returns the registered binder types in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := lo.Keys(c.builders)
	slices.Sort(names)
	return names
}

// Has reports whether a builder is registered for binderType.
func (c *Catalog) Has(binderType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.builders[binderType]
	return ok
}

// NewRegistryFromConfig validates cfg and builds one binder per entry of
// cfg.Binders through catalog (DefaultCatalog when nil). Binders built before
// a failure are closed again.
func NewRegistryFromConfig(ctx context.Context, cfg *config.Config, catalog *Catalog, logger watermill.LoggerAdapter) (*Registry, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}
	if catalog == nil {
		catalog = DefaultCatalog
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	registry := NewRegistry()
	for _, name := range cfg.BinderNames() {
		b, err := catalog.Build(ctx, cfg.Binders[name], logger.With(watermill.LogFields{"binder": name}))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("bindflow: build binder %s: %w", name, err), registry.Close())
		}
		if err := registry.Register(name, b); err != nil {
			return nil, errors.Join(err, b.Close(), registry.Close())
		}
	}
	if err := registry.SetDefault(cfg.DefaultBinder); err != nil {
		return nil, errors.Join(err, registry.Close())
	}
	return registry, nil
}
