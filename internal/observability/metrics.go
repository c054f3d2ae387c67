// Package observability records Prometheus metrics for conversions and
// registry traffic. A CLI run has no scrape endpoint, so metrics are written
// to a node_exporter textfile when one is configured.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for Pakto. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Conversion metrics
	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	bundleSize         prometheus.Histogram
	graphNodes         prometheus.Histogram
	issuesTotal        *prometheus.CounterVec
	polyfillsInjected  *prometheus.CounterVec

	// Registry metrics
	registryRequestsTotal   *prometheus.CounterVec
	registryRequestDuration *prometheus.HistogramVec
	cacheLookupsTotal       *prometheus.CounterVec
}

// NewMetrics creates all metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		// Conversion metrics
		conversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pakto_conversions_total",
				Help: "Total number of package conversions",
			},
			[]string{"strategy", "status"},
		),
		conversionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pakto_conversion_duration_seconds",
				Help:    "Conversion latency in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"strategy"},
		),
		bundleSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pakto_bundle_size_bytes",
				Help:    "Size of emitted bundles in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
		graphNodes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pakto_graph_nodes",
				Help:    "Number of modules in the dependency graph",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		issuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pakto_issues_total",
				Help: "Compatibility issues reported",
			},
			[]string{"level", "code"},
		),
		polyfillsInjected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pakto_polyfills_injected_total",
				Help: "Polyfills bundled into outputs",
			},
			[]string{"polyfill"},
		),

		// Registry metrics
		registryRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pakto_registry_requests_total",
				Help: "Total number of registry requests",
			},
			[]string{"status"},
		),
		registryRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pakto_registry_request_duration_seconds",
				Help:    "Registry request latency in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pakto_cache_lookups_total",
				Help: "Cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
	}

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Conversion is what RecordConversion needs from one conversion.
type Conversion struct {
	Strategy  string
	Duration  time.Duration
	Err       error
	Bytes     int
	Nodes     int
	Issues    map[[2]string]int // {level, code} -> count
	Polyfills []string
}

// RecordConversion records a finished conversion
func (m *Metrics) RecordConversion(c Conversion) {
	if m == nil {
		return
	}
	status := "success"
	if c.Err != nil {
		status = "error"
	}

	m.conversionsTotal.WithLabelValues(c.Strategy, status).Inc()
	m.conversionDuration.WithLabelValues(c.Strategy).Observe(c.Duration.Seconds())
	if c.Nodes > 0 {
		m.graphNodes.Observe(float64(c.Nodes))
	}
	if c.Err == nil {
		m.bundleSize.Observe(float64(c.Bytes))
	}
	for key, n := range c.Issues {
		m.issuesTotal.WithLabelValues(key[0], key[1]).Add(float64(n))
	}
	for _, p := range c.Polyfills {
		m.polyfillsInjected.WithLabelValues(p).Inc()
	}
}

// RecordFetch records one registry request; status 0 means the request
// never got a response.
func (m *Metrics) RecordFetch(status int, duration time.Duration) {
	if m == nil {
		return
	}
	class := statusClass(status)
	m.registryRequestsTotal.WithLabelValues(class).Inc()
	m.registryRequestDuration.WithLabelValues(class).Observe(duration.Seconds())
}

// RecordCache records a cache lookup
func (m *Metrics) RecordCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format,
// atomically, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "error"
	}
}
