package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistererDisablesMetrics(t *testing.T) {
	rm, err := NewResolverMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, rm)

	sm, err := NewSenderMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, sm)

	// Nil receivers are no-ops.
	rm.Resolved(SourceCache)
	rm.Bound(3)
	rm.ObserveBind(time.Millisecond)
	sm.Forwarded("orders")
	sm.ForwardFailed("orders")
	sm.Resubscribed("orders")
}

func TestResolverMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewResolverMetrics(reg)
	require.NoError(t, err)

	m.Resolved(SourceStatic)
	m.Resolved(SourceBound)
	m.Resolved(SourceBound)
	m.Bound(2)
	m.ObserveBind(5 * time.Millisecond)

	assert.Equal(t, 1.0, gatherValue(t, reg, "bindflow_resolver_resolutions_total", "source", SourceStatic))
	assert.Equal(t, 2.0, gatherValue(t, reg, "bindflow_resolver_resolutions_total", "source", SourceBound))
	assert.Equal(t, 2.0, gatherValue(t, reg, "bindflow_resolver_bound_destinations", "", ""))
}

func TestSenderMetricsShareRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSenderMetrics(reg)
	require.NoError(t, err)
	second, err := NewSenderMetrics(reg)
	require.NoError(t, err)

	first.Forwarded("orders")
	second.Forwarded("orders")
	second.ForwardFailed("orders")
	first.Resubscribed("invoices")

	assert.Equal(t, 2.0, gatherValue(t, reg, "bindflow_sender_forwarded_total", "destination", "orders"))
	assert.Equal(t, 1.0, gatherValue(t, reg, "bindflow_sender_forward_errors_total", "destination", "orders"))
	assert.Equal(t, 1.0, gatherValue(t, reg, "bindflow_sender_resubscriptions_total", "destination", "invoices"))
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if label != "" && !hasLabel(metric.GetLabel(), label, value) {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func hasLabel[L interface {
	GetName() string
	GetValue() string
}](labels []L, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
