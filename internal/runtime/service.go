package runtime

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/channel"
	configpkg "github.com/drblury/bindflow/internal/runtime/config"
	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/bindflow/internal/runtime/logging"
	"github.com/drblury/bindflow/resolver"
	"github.com/drblury/bindflow/sender"
)

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to get the defaults.
type ServiceDependencies struct {
	// Catalog builds the configured binders. binder.DefaultCatalog when nil.
	Catalog *binder.Catalog
	// Registry replaces the binders built from Conf. The Service does not
	// close a registry it did not build.
	Registry *binder.Registry
	// StaticChannels are resolved before any binder is consulted.
	StaticChannels channel.Lookup
	// MetricsRegisterer receives the resolver and sender collectors. When nil
	// and Conf.MetricsEnabled is set, prometheus.DefaultRegisterer is used.
	MetricsRegisterer prometheus.Registerer
	Tracer            trace.Tracer
}

// Service wires a binder registry, a destination resolver and the sender
// settings taken from configuration.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	registry     *binder.Registry
	ownsRegistry bool
	resolver     *resolver.Resolver
	registerer   prometheus.Registerer
}

// NewService constructs a Service for the supplied configuration. It panics
// when the configuration is invalid or a binder cannot be built; use
// TryNewService to handle those errors.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService constructs a Service and reports configuration and binder
// errors instead of panicking.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	log = loggingpkg.OrNop(log)
	log.Info("Creating bindflow service", loggingpkg.LogFields{
		"default_binder": conf.DefaultBinder,
		"binders":        conf.BinderNames(),
		"config":         conf,
	})

	s := &Service{
		Conf:       conf,
		Logger:     log,
		registry:   deps.Registry,
		registerer: deps.MetricsRegisterer,
	}
	if s.registerer == nil && conf.MetricsEnabled {
		s.registerer = prometheus.DefaultRegisterer
	}

	if s.registry == nil {
		registry, err := binder.NewRegistryFromConfig(ctx, conf, deps.Catalog, loggingpkg.NewWatermillAdapter(log))
		if err != nil {
			return nil, err
		}
		s.registry = registry
		s.ownsRegistry = true
	}

	opts := []resolver.Option{
		resolver.WithLogger(log),
		resolver.WithProperties(binder.Properties(conf.DynamicDestinationProperties)),
		resolver.WithDestinationProperties(destinationProperties(conf.Destinations)),
		resolver.WithMetrics(s.registerer),
	}
	if deps.StaticChannels != nil {
		opts = append(opts, resolver.WithStaticChannels(deps.StaticChannels))
	}
	if deps.Tracer != nil {
		opts = append(opts, resolver.WithTracer(deps.Tracer))
	}

	res, err := resolver.New(s.registry, opts...)
	if err != nil {
		if s.ownsRegistry {
			_ = s.registry.Close()
		}
		return nil, err
	}
	s.resolver = res
	return s, nil
}

func destinationProperties(destinations map[string]map[string]string) map[string]binder.Properties {
	if destinations == nil {
		return nil
	}
	out := make(map[string]binder.Properties, len(destinations))
	for name, props := range destinations {
		out[name] = binder.Properties(props)
	}
	return out
}

func (s *Service) Registry() *binder.Registry { return s.registry }

func (s *Service) Resolver() *resolver.Resolver { return s.resolver }

// Resolve returns the channel for destination, binding it on first use.
func (s *Service) Resolve(ctx context.Context, destination string) (channel.Channel, error) {
	return s.resolver.Resolve(ctx, destination)
}

// Unbind releases a destination previously returned by Resolve.
func (s *Service) Unbind(destination string) error {
	return s.resolver.Unbind(destination)
}

// Subscribe binds handler as a consumer of destination within group. The
// destination may carry a "#configurationName" suffix. Unbinding the
// returned binding also closes the consumer channel.
func (s *Service) Subscribe(ctx context.Context, destination, group string, handler channel.Handler) (binder.Binding, error) {
	if handler == nil {
		return nil, fmt.Errorf("subscribe %s: %w", destination, errspkg.ErrHandlerRequired)
	}
	name, configurationName := resolver.SplitDestination(destination)
	b, err := s.registry.Get(configurationName)
	if err != nil {
		return nil, &resolver.ResolutionError{Destination: destination, Err: err}
	}

	props := binder.Properties(s.Conf.Destinations[destination])
	if props == nil {
		props = binder.Properties(s.Conf.Destinations[name])
	}

	ch := channel.New(name, channel.WithLogger(s.Logger))
	ch.Subscribe(handler)
	binding, err := b.BindConsumer(ctx, name, group, ch, props)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	s.Logger.Info("Consumer bound", loggingpkg.LogFields{
		"destination": name,
		"group":       binding.Group(),
		"binder":      configurationName,
	})
	return binder.NewBinding(name, binding.Group(), binder.RoleConsumer, func() error {
		err := binding.Unbind()
		return errors.Join(err, ch.Close())
	}), nil
}

// SenderOptions returns the sender options derived from the configuration:
// the service logger, the configured re-subscription backoff and metrics.
func (s *Service) SenderOptions() []sender.Option {
	maxRetries := s.Conf.SenderMaxRetries
	initial := s.Conf.SenderInitialInterval
	maxInterval := s.Conf.SenderMaxInterval
	return []sender.Option{
		sender.WithLogger(s.Logger),
		sender.WithMetrics(s.registerer),
		sender.WithBackoff(func() retry.Backoff {
			return sender.NewBackoff(maxRetries, initial, maxInterval)
		}),
	}
}

// Close unbinds every resolved destination and closes the binders the
// Service built.
func (s *Service) Close() error {
	err := s.resolver.Close()
	if s.ownsRegistry {
		err = errors.Join(err, s.registry.Close())
	}
	return err
}

// NewSender resolves destination and returns a sender for it configured from
// s.SenderOptions. opts are applied after the configured ones.
func NewSender[T any](ctx context.Context, s *Service, destination string, opts ...sender.Option) (*sender.Sender[T], error) {
	if s == nil {
		return nil, errspkg.ErrServiceRequired
	}
	ch, err := s.Resolve(ctx, destination)
	if err != nil {
		return nil, err
	}
	return sender.New[T](ch, append(s.SenderOptions(), opts...)...)
}

// Send resolves destination and forwards seq to it. Resolution failures are
// reported through the returned Result.
func Send[T any](ctx context.Context, s *Service, destination string, seq iter.Seq2[T, error]) *sender.Result {
	snd, err := NewSender[T](ctx, s, destination)
	if err != nil {
		return sender.Failed(err)
	}
	return snd.Send(ctx, seq)
}
