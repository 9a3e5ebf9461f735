package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/channel"
	"github.com/drblury/bindflow/internal/runtime/logging"
)

// Option configures a Resolver.
type Option func(*options)

type options struct {
	static     channel.Lookup
	props      binder.Properties
	destProps  map[string]binder.Properties
	logger     logging.ServiceLogger
	registerer prometheus.Registerer
	tracer     trace.Tracer
}

// WithStaticChannels consults lookup before any binder. Channels found there
// are returned as-is and never bound or cached.
func WithStaticChannels(lookup channel.Lookup) Option {
	return func(o *options) { o.static = lookup }
}

// WithProperties sets the producer properties passed to every bind.
func WithProperties(props binder.Properties) Option {
	return func(o *options) { o.props = props }
}

// WithDestinationProperties sets per-destination producer properties, keyed
// by the full name or by the name without its configuration suffix. They
// replace the properties set through WithProperties for that destination.
func WithDestinationProperties(props map[string]binder.Properties) Option {
	return func(o *options) { o.destProps = props }
}

// WithLogger sets the logger used for bind and unbind events.
func WithLogger(log logging.ServiceLogger) Option {
	return func(o *options) { o.logger = log }
}

// WithMetrics registers the resolver collectors with registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(o *options) { o.registerer = registerer }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}
