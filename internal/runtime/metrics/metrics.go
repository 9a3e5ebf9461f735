// Package metrics holds the Prometheus collectors published by the resolver
// and the sender. A nil collector set is valid and records nothing, so
// components only pay for metrics when a Registerer is supplied.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every bindflow metric.
const Namespace = "bindflow"

// Resolution sources reported by ResolverMetrics.
const (
	SourceStatic = "static"
	SourceCache  = "cache"
	SourceBound  = "bound"
	SourceError  = "error"
)

// ResolverMetrics tracks destination resolution.
type ResolverMetrics struct {
	resolutions  *prometheus.CounterVec
	bound        prometheus.Gauge
	bindDuration prometheus.Histogram
}

// NewResolverMetrics creates and registers the resolver collectors. It
// returns nil when registerer is nil.
func NewResolverMetrics(registerer prometheus.Registerer) (*ResolverMetrics, error) {
	if registerer == nil {
		return nil, nil
	}

	m := &ResolverMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Destination resolutions by source (static, cache, bound, error).",
		}, []string{"source"}),
		bound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "resolver",
			Name:      "bound_destinations",
			Help:      "Number of dynamically bound destinations currently cached.",
		}),
		bindDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "resolver",
			Name:      "bind_duration_seconds",
			Help:      "Time spent in the binder while binding a producer.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	var err error
	m.resolutions, err = register(registerer, m.resolutions)
	if err != nil {
		return nil, err
	}
	m.bound, err = register(registerer, m.bound)
	if err != nil {
		return nil, err
	}
	m.bindDuration, err = register(registerer, m.bindDuration)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Resolved counts one resolution served from source.
func (m *ResolverMetrics) Resolved(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

// Bound sets the number of cached destinations.
func (m *ResolverMetrics) Bound(n int) {
	if m == nil {
		return
	}
	m.bound.Set(float64(n))
}

// ObserveBind records how long a bind call took.
func (m *ResolverMetrics) ObserveBind(d time.Duration) {
	if m == nil {
		return
	}
	m.bindDuration.Observe(d.Seconds())
}

// SenderMetrics tracks forwarding from sequences into channels.
type SenderMetrics struct {
	forwarded      *prometheus.CounterVec
	forwardErrors  *prometheus.CounterVec
	resubscription *prometheus.CounterVec
}

// NewSenderMetrics creates and registers the sender collectors. It returns nil
// when registerer is nil.
func NewSenderMetrics(registerer prometheus.Registerer) (*SenderMetrics, error) {
	if registerer == nil {
		return nil, nil
	}

	m := &SenderMetrics{
		forwarded:      newSenderCounterVec("forwarded_total", "Messages accepted by the destination channel."),
		forwardErrors:  newSenderCounterVec("forward_errors_total", "Messages the destination channel rejected."),
		resubscription: newSenderCounterVec("resubscriptions_total", "Re-subscriptions after an upstream sequence error."),
	}

	var err error
	if m.forwarded, err = register(registerer, m.forwarded); err != nil {
		return nil, err
	}
	if m.forwardErrors, err = register(registerer, m.forwardErrors); err != nil {
		return nil, err
	}
	if m.resubscription, err = register(registerer, m.resubscription); err != nil {
		return nil, err
	}
	return m, nil
}

// Forwarded counts an accepted message.
func (m *SenderMetrics) Forwarded(destination string) {
	if m == nil {
		return
	}
	m.forwarded.WithLabelValues(destination).Inc()
}

// ForwardFailed counts a rejected message.
func (m *SenderMetrics) ForwardFailed(destination string) {
	if m == nil {
		return
	}
	m.forwardErrors.WithLabelValues(destination).Inc()
}

// Resubscribed counts a re-subscription attempt.
func (m *SenderMetrics) Resubscribed(destination string) {
	if m == nil {
		return
	}
	m.resubscription.WithLabelValues(destination).Inc()
}

func newSenderCounterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sender",
			Name:      name,
			Help:      help,
		},
		[]string{"destination"},
	)
}

// register registers c, reusing the collector that is already registered
// under the same descriptor so several resolvers or senders can share one
// Registerer.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
