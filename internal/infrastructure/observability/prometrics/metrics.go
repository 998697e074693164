package prometrics

import (
	"errors"

	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry creates metric instruments on a prometheus.Registerer.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	reg       prometheus.Registerer
	namespace string
	subsystem string
}

// New registers against the default Prometheus registerer.
func New(namespace, subsystem string) Registry {
	return NewWithRegisterer(prometheus.DefaultRegisterer, namespace, subsystem)
}

// NewWithRegisterer registers against reg. The serve command passes its own
// prometheus.Registry so /metrics only exposes what the service declared.
func NewWithRegisterer(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{reg: reg, namespace: namespace, subsystem: subsystem}
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	return &counter{vec: register(r.reg, cv), keys: labelKeys}
}

// Histogram falls back to prometheus.DefBuckets when buckets is empty.
func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	return &histogram{vec: register(r.reg, hv), keys: labelKeys}
}

// register returns the collector already registered under the same
// descriptor, so asking for an instrument twice shares one series set.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// labels maps the caller's labels onto the declared keys. Missing keys are
// set to "" and undeclared ones dropped; prometheus panics on either.
func labels(keys []string, ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(keys))
	for _, k := range keys {
		m[k] = ""
	}
	for _, l := range ls {
		if _, ok := m[l.Key]; ok {
			m[l.Key] = l.Value
		}
	}
	return m
}

type counter struct {
	vec  *prometheus.CounterVec
	keys []string
}

func (c *counter) Add(d float64, ls ...observability.Label) {
	c.vec.With(labels(c.keys, ls)).Add(d)
}

func (c *counter) Bind(ls ...observability.Label) observability.BoundCounter {
	return c.vec.With(labels(c.keys, ls))
}

type histogram struct {
	vec  *prometheus.HistogramVec
	keys []string
}

func (h *histogram) Observe(v float64, ls ...observability.Label) {
	h.vec.With(labels(h.keys, ls)).Observe(v)
}

func (h *histogram) Bind(ls ...observability.Label) observability.BoundHistogram {
	return h.vec.With(labels(h.keys, ls))
}
