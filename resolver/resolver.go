// Package resolver turns destination names into live channels. Names are
// looked up in a static channel directory first; anything else is created on
// demand, bound as a producer through the binder selected by the name's
// configuration suffix and cached for the lifetime of the resolver.
//
// A name has the form "destination" or "destination#configurationName". The
// part after the last '#' selects the binder from the registry; the part
// before it is the destination the binder sees.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/channel"
	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
	"github.com/drblury/bindflow/internal/runtime/logging"
	"github.com/drblury/bindflow/internal/runtime/metrics"
)

const (
	tracerName   = "bindflow"
	resolveSpan  = "bindflow.resolve"
	suffixMarker = "#"
)

// Resolver resolves destination names to channels. It is safe for concurrent
// use.
type Resolver struct {
	registry  *binder.Registry
	static    channel.Lookup
	props     binder.Properties
	destProps map[string]binder.Properties
	logger    logging.ServiceLogger
	metrics   *metrics.ResolverMetrics
	tracer    trace.Tracer

	cache   sync.Map // full name -> *entry
	flights singleflight.Group
	bound   *atomic.Int64

	// lifecycle is held for reading by every bind so Close can wait for
	// in-flight binds and nothing is cached after it.
	lifecycle sync.RWMutex
	closed    bool
}

type entry struct {
	ch      *channel.Local
	binding binder.Binding
}

// New creates a resolver over registry.
func New(registry *binder.Registry, opts ...Option) (*Resolver, error) {
	if registry == nil {
		return nil, errspkg.ErrRegistryNeeded
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := metrics.NewResolverMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("register resolver metrics: %w", err)
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Resolver{
		registry:  registry,
		static:    o.static,
		props:     o.props,
		destProps: o.destProps,
		logger:    logging.OrNop(o.logger),
		metrics:   m,
		tracer:    tracer,
		bound:     atomic.NewInt64(0),
	}, nil
}

// SplitDestination splits name at its last '#'. configurationName is empty
// when name carries no suffix.
func SplitDestination(name string) (destination, configurationName string) {
	if i := strings.LastIndex(name, suffixMarker); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// Resolve returns the channel for name, binding it on first use. Concurrent
// first resolutions of the same name share one bind; a failed bind is not
// cached and the next call tries again.
func (r *Resolver) Resolve(ctx context.Context, name string) (channel.Channel, error) {
	if name == "" {
		return nil, &ResolutionError{Destination: name, Err: ErrEmptyName}
	}
	if r.isClosed() {
		return nil, &ResolutionError{Destination: name, Err: ErrResolverClosed}
	}

	if r.static != nil {
		if ch, ok := r.static.Lookup(name); ok {
			r.metrics.Resolved(metrics.SourceStatic)
			return ch, nil
		}
	}

	if v, ok := r.cache.Load(name); ok {
		r.metrics.Resolved(metrics.SourceCache)
		return v.(*entry).ch, nil
	}

	// The bind outlives a caller that gives up so the other waiters still
	// get the shared result.
	bindCtx := context.WithoutCancel(ctx)
	results := r.flights.DoChan(name, func() (any, error) {
		return r.bind(bindCtx, name)
	})

	select {
	case res := <-results:
		if res.Err != nil {
			r.metrics.Resolved(metrics.SourceError)
			return nil, &ResolutionError{Destination: name, Err: res.Err}
		}
		r.metrics.Resolved(metrics.SourceBound)
		return res.Val.(*entry).ch, nil
	case <-ctx.Done():
		r.metrics.Resolved(metrics.SourceError)
		return nil, &ResolutionError{Destination: name, Err: ctx.Err()}
	}
}

func (r *Resolver) isClosed() bool {
	r.lifecycle.RLock()
	defer r.lifecycle.RUnlock()
	return r.closed
}

func (r *Resolver) bind(ctx context.Context, name string) (*entry, error) {
	if v, ok := r.cache.Load(name); ok {
		return v.(*entry), nil
	}

	r.lifecycle.RLock()
	defer r.lifecycle.RUnlock()
	if r.closed {
		return nil, ErrResolverClosed
	}

	destination, configurationName := SplitDestination(name)
	log := r.logger.With(logging.LogFields{"destination": destination, "binder": configurationName})

	b, err := r.registry.Get(configurationName)
	if err != nil {
		log.Error("No binder for destination", err, nil)
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, resolveSpan, trace.WithAttributes(
		attribute.String("bindflow.destination", destination),
		attribute.String("bindflow.binder", configurationName),
		attribute.String("bindflow.binder.kind", b.Kind().String()),
	))
	defer span.End()

	ch := channel.New(destination, channel.WithLogger(r.logger))

	started := time.Now()
	binding, err := b.BindProducer(ctx, destination, ch, r.propertiesFor(name, destination))
	r.metrics.ObserveBind(time.Since(started))
	if err != nil {
		_ = ch.Close()
		var bindErr *binder.BindingError
		if !errors.As(err, &bindErr) {
			err = binder.NewBindingError(destination, binder.RoleProducer, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Failed to bind destination", err, nil)
		return nil, err
	}

	e := &entry{ch: ch, binding: binding}
	r.cache.Store(name, e)
	r.metrics.Bound(int(r.bound.Inc()))
	log.Info("Destination bound", nil)
	return e, nil
}

func (r *Resolver) propertiesFor(name, destination string) binder.Properties {
	if props, ok := r.destProps[name]; ok {
		return props
	}
	if props, ok := r.destProps[destination]; ok {
		return props
	}
	return r.props
}

// Unbind detaches the producer binding for name and closes its channel.
// Senders still forwarding to the channel stop. A later Resolve binds the
// name again.
func (r *Resolver) Unbind(name string) error {
	v, ok := r.cache.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotBound, name)
	}
	r.metrics.Bound(int(r.bound.Dec()))
	return r.release(name, v.(*entry))
}

func (r *Resolver) release(name string, e *entry) error {
	err := e.binding.Unbind()
	_ = e.ch.Close()
	if err != nil {
		r.logger.Error("Failed to unbind destination", err, logging.LogFields{"destination": name})
		return fmt.Errorf("unbind %s: %w", name, err)
	}
	r.logger.Debug("Destination unbound", logging.LogFields{"destination": name})
	return nil
}

// Bound returns the sorted names of the destinations bound by this resolver.
func (r *Resolver) Bound() []string {
	var names []string
	r.cache.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	slices.Sort(names)
	return names
}

// Close unbinds every destination. Resolve fails with ErrResolverClosed
// afterwards. The registry and its binders are left open.
func (r *Resolver) Close() error {
	r.lifecycle.Lock()
	if r.closed {
		r.lifecycle.Unlock()
		return nil
	}
	r.closed = true
	r.lifecycle.Unlock()

	var errs []error
	r.cache.Range(func(k, v any) bool {
		if _, loaded := r.cache.LoadAndDelete(k); loaded {
			r.bound.Dec()
			if err := r.release(k.(string), v.(*entry)); err != nil {
				errs = append(errs, err)
			}
		}
		return true
	})
	r.metrics.Bound(int(r.bound.Load()))
	return errors.Join(errs...)
}
