package prometrics

import (
	"strings"
	"testing"

	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterSharesSeriesWhenRequestedTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg, "travelshop", "")

	r.Counter("orders_total", "Orders.", "status").Add(1, observability.L("status", "paid"))
	r.Counter("orders_total", "Orders.", "status").Bind(observability.L("status", "paid")).Add(2)

	expected := `
# HELP travelshop_orders_total Orders.
# TYPE travelshop_orders_total counter
travelshop_orders_total{status="paid"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "travelshop_orders_total"))
}

func TestLabelsAreNormalized(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg, "", "")
	c := r.Counter("calls_total", "Calls.", "peer", "outcome")

	assert.NotPanics(t, func() {
		c.Add(1, observability.L("peer", "kakaopay"), observability.L("unexpected", "x"))
	})

	expected := `
# HELP calls_total Calls.
# TYPE calls_total counter
calls_total{outcome="",peer="kakaopay"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "calls_total"))
}

func TestHistogramDefaultsBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewWithRegisterer(reg, "", "").Histogram("latency_seconds", "Latency.", nil, "route")

	h.Observe(0.01, observability.L("route", "/api/orders"))
	h.Bind(observability.L("route", "/api/orders")).Observe(0.02)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	hist := mfs[0].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.Len(t, hist.GetBucket(), len(prometheus.DefBuckets))
}

func TestConflictingRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg, "", "")
	r.Counter("dup_total", "Dup.", "a")
	assert.Panics(t, func() { r.Histogram("dup_total", "Dup.", nil, "a") })
}
