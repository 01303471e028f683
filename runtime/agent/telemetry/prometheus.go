package telemetry

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics on top of a prometheus.Registerer. It is
// used by the RPC Boundary's /metrics endpoint (SPEC_FULL.md §4.0) as an
// alternative to the OTel-backed ClueMetrics, since many operators scrape
// Prometheus directly rather than running an OTel collector.
type PrometheusMetrics struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics constructs a Metrics implementation registered against reg.
// Pass prometheus.DefaultRegisterer to expose metrics on the default handler.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	return &PrometheusMetrics{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// IncCounter increments a counter metric, creating and registering it on first use.
// tags are treated as alternating label name/value pairs; the label name set for a
// given metric name must stay stable across calls.
func (m *PrometheusMetrics) IncCounter(name string, value float64, tags ...string) {
	names, values := splitTags(tags)
	m.mu.Lock()
	cv, ok := m.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: sanitizeMetricName(name)}, names)
		m.reg.MustRegister(cv)
		m.counters[name] = cv
	}
	m.mu.Unlock()
	cv.WithLabelValues(values...).Add(value)
}

// RecordTimer records a duration observation in seconds.
func (m *PrometheusMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	names, values := splitTags(tags)
	m.mu.Lock()
	hv, ok := m.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    sanitizeMetricName(name),
			Buckets: prometheus.DefBuckets,
		}, names)
		m.reg.MustRegister(hv)
		m.histograms[name] = hv
	}
	m.mu.Unlock()
	hv.WithLabelValues(values...).Observe(duration.Seconds())
}

// RecordGauge sets a gauge metric value.
func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags ...string) {
	names, values := splitTags(tags)
	m.mu.Lock()
	gv, ok := m.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: sanitizeMetricName(name)}, names)
		m.reg.MustRegister(gv)
		m.gauges[name] = gv
	}
	m.mu.Unlock()
	gv.WithLabelValues(values...).Set(value)
}

func splitTags(tags []string) (names, values []string) {
	for i := 0; i+1 < len(tags); i += 2 {
		names = append(names, tags[i])
		values = append(values, tags[i+1])
	}
	return names, values
}

func sanitizeMetricName(name string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(name)
}
