package observability

import (
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok && c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok && h != nil {
		return h
	}
	return observability.NopHistogram()
}

// New assembles an Observability backed by the supplied tracer, logger and
// metric instruments. Unknown metric keys resolve to no-op instruments.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	var metrics observability.Metrics = observability.NopMetrics()
	if len(counters) > 0 || len(histograms) > 0 {
		m := &registeredMetrics{
			counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
			histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
		}
		for k, v := range counters {
			if v != nil {
				m.counters[k] = v
			}
		}
		for k, v := range histograms {
			if v != nil {
				m.histograms[k] = v
			}
		}
		metrics = m
	}

	return &provider{tracer: tracer, logger: logger, metrics: metrics}
}

// RegisterStandard creates every instrument the services report to.
func RegisterStandard(reg prometrics.Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counter := func(k observability.MetricKey, help string, labels ...string) observability.Counter {
		return reg.Counter(string(k), help, labels...)
	}
	histogram := func(k observability.MetricKey, help string, labels ...string) observability.Histogram {
		return reg.Histogram(string(k), help, prometheus.DefBuckets, labels...)
	}

	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests:        counter(observability.MUsecaseRequests, "Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests:           counter(observability.MHTTPRequests, "Total number of HTTP requests.", "route", "method", "status"),
		observability.MExternalRequests:       counter(observability.MExternalRequests, "Outbound calls to providers, mail and the event bus.", "peer", "endpoint", "outcome"),
		observability.MInventoryCompensations: counter(observability.MInventoryCompensations, "Stock restorations run after a failed reservation.", "use_case", "outcome"),
		observability.MNotificationsSent:      counter(observability.MNotificationsSent, "Order notification mails by outcome.", "status", "outcome"),
		observability.MPaymentVerifications:   counter(observability.MPaymentVerifications, "Provider approvals checked against the ledger.", "provider", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration:         histogram(observability.MUsecaseDuration, "Duration of use case execution in seconds.", "use_case"),
		observability.MHTTPRequestDuration:     histogram(observability.MHTTPRequestDuration, "Duration of HTTP requests in seconds.", "route", "method"),
		observability.MExternalRequestDuration: histogram(observability.MExternalRequestDuration, "Duration of outbound calls in seconds.", "peer", "endpoint"),
	}
	return counters, histograms
}

func (p *provider) Tracer() observability.Tracer { return p.tracer }

func (p *provider) Logger() observability.Logger { return p.logger }

func (p *provider) Metrics() observability.Metrics { return p.metrics }
