// Package metrics exposes Prometheus metrics for the screening
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "pulseecho"
	subsystem = "screening"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	screeningsCompleted *prometheus.CounterVec
	screeningsFailed    *prometheus.CounterVec
	alertsDispatched    *prometheus.CounterVec
	inferenceLatency    prometheus.Histogram
}

// New creates the Metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,
		screeningsCompleted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "completed_total",
			Help:      "Completed screening requests, by risk tier",
		}, []string{"risk_tier"}),
		screeningsFailed: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failed_total",
			Help:      "Failed screening requests, by error kind",
		}, []string{"kind"}),
		alertsDispatched: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_total",
			Help:      "Dispatched SMS alerts, by delivery status",
		}, []string{"status"}),
		inferenceLatency: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inference_latency_seconds",
			Help:      "Latency of classification calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ScreeningCompleted counts one completed request.
func (m *Metrics) ScreeningCompleted(riskTier string) {
	m.screeningsCompleted.WithLabelValues(riskTier).Inc()
}

// ScreeningFailed counts one failed request.
func (m *Metrics) ScreeningFailed(kind string) {
	m.screeningsFailed.WithLabelValues(kind).Inc()
}

// AlertDispatched counts one alert outcome.
func (m *Metrics) AlertDispatched(status string) {
	m.alertsDispatched.WithLabelValues(status).Inc()
}

// ObserveInferenceLatency records one classification duration.
func (m *Metrics) ObserveInferenceLatency(seconds float64) {
	m.inferenceLatency.Observe(seconds)
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
