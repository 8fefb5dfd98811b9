// Package telemetry exposes Prometheus instrumentation for the HTTP server.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics holds metric instruments for HTTP server telemetry.
// Initialize once at server startup and reuse throughout the application lifecycle.
type ServerMetrics struct {
	RequestCounter  *prometheus.CounterVec   // Total HTTP requests by method, route, status
	RequestDuration *prometheus.HistogramVec // HTTP request latency
	MutationCounter *prometheus.CounterVec   // Fund mutations by outcome

	registry *prometheus.Registry
}

// NewServerMetrics creates a ServerMetrics instance with its own registry.
func NewServerMetrics() *ServerMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &ServerMetrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hulugan_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hulugan_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		MutationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hulugan_fund_mutations_total",
				Help: "Total number of fund mutations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		registry: registry,
	}
}

// Handler returns the HTTP handler serving this instance's registry.
func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
