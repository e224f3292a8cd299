package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the task service.
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	RequestDurationMs  *prometheus.HistogramVec
	AuthFailureTotal   *prometheus.CounterVec
	UpstreamErrorTotal *prometheus.CounterVec
	IdentityCacheTotal *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmind_request_total",
			Help: "Total number of requests handled, by handler and response status.",
		}, []string{"handler", "status"}),

		RequestDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmind_request_duration_ms",
			Help:    "Request duration in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"handler"}),

		AuthFailureTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmind_auth_failure_total",
			Help: "Rejected credentials, by reason.",
		}, []string{"reason"}),

		UpstreamErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmind_upstream_error_total",
			Help: "Failed calls to backing services.",
		}, []string{"service"}),

		IdentityCacheTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmind_identity_cache_total",
			Help: "Identity cache lookups, by result.",
		}, []string{"result"}),
	}
}

// RecordRequest records metrics for a completed request.
func (m *Metrics) RecordRequest(handler string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestTotal.WithLabelValues(handler, statusLabel(status)).Inc()
	m.RequestDurationMs.WithLabelValues(handler).Observe(float64(elapsed.Microseconds()) / 1000)
}

// RecordAuthFailure counts a rejected credential.
func (m *Metrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailureTotal.WithLabelValues(reason).Inc()
}

// RecordUpstreamError counts a failed call to service (store, completion).
func (m *Metrics) RecordUpstreamError(service string) {
	if m == nil {
		return
	}
	m.UpstreamErrorTotal.WithLabelValues(service).Inc()
}

// RecordCacheLookup counts an identity cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.IdentityCacheTotal.WithLabelValues(result).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
