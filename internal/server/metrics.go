package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "songrelay"

// Metrics holds the relay's Prometheus collectors on a dedicated registry.
//
// A nil *Metrics is valid and records nothing, so handlers work with metrics disabled.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	upstreamErrors *prometheus.CounterVec
	streamedBytes  prometheus.Counter
	handler        http.Handler
}

// NewMetrics creates and registers the relay collectors along with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time to serve a request, including the full stream for song routes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_errors_total",
			Help:      "Failed store operations by operation (list, open, copy).",
		}, []string{"op"}),
		streamedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "streamed_bytes_total",
			Help:      "Audio bytes relayed to clients.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.upstreamErrors,
		m.streamedBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Routes returns the path the metrics handler serves.
func (m *Metrics) Routes() []string {
	return []string{"/metrics"}
}

// ServeHTTP serves the Prometheus exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

func (m *Metrics) observeRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) upstreamError(op string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) streamed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.streamedBytes.Add(float64(n))
}
