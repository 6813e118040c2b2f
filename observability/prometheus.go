package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuckets spans base-unit amounts from 1 to 10^19, covering both
// 6-decimal tokens and 18-decimal native currency.
var DefaultBuckets = prometheus.ExponentialBuckets(1, 10, 20)

// PrometheusFactory is a MetricFactory backed by a prometheus.Registerer.
// Dotted metric names are converted to Prometheus names, so
// "paymarket.purchase.native" becomes "paymarket_purchase_native_total".
type PrometheusFactory struct {
	reg     prometheus.Registerer
	buckets []float64

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// PrometheusOption configures a PrometheusFactory.
type PrometheusOption func(*PrometheusFactory)

// WithBuckets overrides the histogram buckets.
func WithBuckets(buckets []float64) PrometheusOption {
	return func(f *PrometheusFactory) {
		if len(buckets) > 0 {
			f.buckets = buckets
		}
	}
}

// NewPrometheusFactory creates a factory registering on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &PrometheusFactory{
		reg:        reg,
		buckets:    DefaultBuckets,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}

	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: promName(name) + "_total",
		Help: "Count of " + name + " events.",
	})
	c = register(f.reg, c)
	f.counters[name] = c
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}

	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    promName(name),
		Help:    "Distribution of " + name + ".",
		Buckets: f.buckets,
	})
	h = register(f.reg, h)
	f.histograms[name] = h
	return h
}

// register adds c to reg, returning the already registered collector when an
// identical one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		// A conflicting registration leaves c unregistered but usable.
	}
	return c
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
