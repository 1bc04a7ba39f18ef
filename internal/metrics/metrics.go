// Package metrics provides Prometheus metrics for the profiling service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for the latency histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers metrics on reg instead of a fresh private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	profiles            *prometheus.CounterVec
	profileDuration     prometheus.Histogram
	profileRows         prometheus.Histogram
	anomaliesFlagged    *prometheus.CounterVec
	uploads             *prometheus.CounterVec
}

// NewManager creates and registers the collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tabinsight",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.profiles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "profiles_total",
		Help:      "Profiling runs by outcome",
	}, []string{"status"})

	m.profileDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "profile_duration_milliseconds",
		Help:      "Time spent profiling one dataset, in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.profileRows = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "profile_rows",
		Help:      "Number of rows per profiled dataset",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
	})

	m.anomaliesFlagged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "anomalies_flagged_total",
		Help:      "Rows flagged by each detector",
	}, []string{"reason"})

	m.uploads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "uploads_total",
		Help:      "Dataset uploads by outcome",
	}, []string{"status"})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest counts one request and observes its latency.
func (m *Manager) RecordHTTPRequest(endpoint, method, status string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// RecordProfile records a successful profiling run. flagged maps reason kinds
// to the number of rows carrying that reason.
func (m *Manager) RecordProfile(rows int, durationMs float64, flagged map[string]int) {
	m.profiles.WithLabelValues("ok").Inc()
	m.profileDuration.Observe(durationMs)
	m.profileRows.Observe(float64(rows))
	for reason, n := range flagged {
		m.anomaliesFlagged.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordProfileError counts a profiling run that failed before producing a report.
func (m *Manager) RecordProfileError() {
	m.profiles.WithLabelValues("error").Inc()
}

// RecordUpload counts an upload attempt by outcome ("ok", "rejected", "error").
func (m *Manager) RecordUpload(status string) {
	m.uploads.WithLabelValues(status).Inc()
}
