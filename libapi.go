package bindflow

import (
	"context"
	"iter"

	"github.com/drblury/bindflow/binder"
	_ "github.com/drblury/bindflow/binder/binders"
	"github.com/drblury/bindflow/channel"
	runtimepkg "github.com/drblury/bindflow/internal/runtime"
	configpkg "github.com/drblury/bindflow/internal/runtime/config"
	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
	jsoncodec "github.com/drblury/bindflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/bindflow/internal/runtime/logging"
	"github.com/drblury/bindflow/resolver"
	"github.com/drblury/bindflow/sender"
)

type (
	Config                = configpkg.Config
	BinderConfig          = configpkg.BinderConfig
	Service               = runtimepkg.Service
	ServiceDependencies   = runtimepkg.ServiceDependencies
	ConfigValidationError = errspkg.ConfigValidationError

	Channel        = channel.Channel
	ChannelHandler = channel.Handler
	ChannelLookup  = channel.Lookup
	LocalChannel   = channel.Local
	Directory      = channel.Directory

	Binder               = binder.Binder
	Binding              = binder.Binding
	BinderKind           = binder.Kind
	BinderRole           = binder.Role
	Properties           = binder.Properties
	Capabilities         = binder.Capabilities
	Registry             = binder.Registry
	Catalog              = binder.Catalog
	BindingError         = binder.BindingError
	AmbiguousBinderError = binder.AmbiguousBinderError
	UnknownBinderError   = binder.UnknownBinderError

	Resolver        = resolver.Resolver
	ResolverOption  = resolver.Option
	ResolutionError = resolver.ResolutionError

	Sender[T any]   = sender.Sender[T]
	SenderOption    = sender.Option
	SendFunc[T any] = sender.Func[T]
	SendResult      = sender.Result
	ForwardError    = sender.ForwardError

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig
	LoadConfig     = configpkg.Load
	LoadConfigYAML = func(data []byte) (*Config, error) { return configpkg.LoadBytes("yaml", data) }

	NewChannel     = channel.New
	NewDirectory   = channel.NewDirectory
	NewMessage     = channel.NewMessage
	ToMessage      = channel.ToMessage
	DefaultBinders = binder.DefaultCatalog

	NewResolver               = resolver.New
	SplitDestination          = resolver.SplitDestination
	WithStaticChannels        = resolver.WithStaticChannels
	WithProperties            = resolver.WithProperties
	WithDestinationProperties = resolver.WithDestinationProperties

	DefaultSenderBackoff = sender.DefaultBackoff
	WithSenderBackoff    = sender.WithBackoff

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewWatermillAdapter       = loggingpkg.NewWatermillAdapter

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal

	ErrNameRequired    = errspkg.ErrNameRequired
	ErrConfigRequired  = errspkg.ErrConfigRequired
	ErrServiceRequired = errspkg.ErrServiceRequired
	ErrHandlerRequired = errspkg.ErrHandlerRequired
	ErrChannelClosed   = channel.ErrClosed
	ErrBinderClosed    = binder.ErrBinderClosed
	ErrNilChannel      = binder.ErrNilChannel
	ErrResolverClosed  = resolver.ErrResolverClosed
	ErrNotBound        = resolver.ErrNotBound
	ErrRejected        = sender.ErrRejected
)

// NewRegistry builds every binder configured in cfg from the default binder
// catalog, which includes the local, nats, kafka and rabbitmq types.
func NewRegistry(ctx context.Context, cfg *Config, log ServiceLogger) (*Registry, error) {
	return binder.NewRegistryFromConfig(ctx, cfg, binder.DefaultCatalog, loggingpkg.NewWatermillAdapter(loggingpkg.OrNop(log)))
}

// NewSender creates a sender for ch.
func NewSender[T any](ch Channel, opts ...SenderOption) (*Sender[T], error) {
	return sender.New[T](ch, opts...)
}

// NewServiceSender resolves destination through svc and returns a sender
// configured from the service settings.
func NewServiceSender[T any](ctx context.Context, svc *Service, destination string, opts ...SenderOption) (*Sender[T], error) {
	return runtimepkg.NewSender[T](ctx, svc, destination, opts...)
}

// Send resolves destination through svc and forwards seq to it.
func Send[T any](ctx context.Context, svc *Service, destination string, seq iter.Seq2[T, error]) *SendResult {
	return runtimepkg.Send(ctx, svc, destination, seq)
}

// FromSlice yields the items of s.
func FromSlice[T any](s []T) iter.Seq2[T, error] {
	return sender.FromSlice(s)
}

// FromChan yields values received from c until it is closed.
func FromChan[T any](c <-chan T) iter.Seq2[T, error] {
	return sender.FromChan(c)
}
