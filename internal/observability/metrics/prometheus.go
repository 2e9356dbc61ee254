// Package metrics provides Prometheus metrics for the journey backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	PatientsLoaded      prometheus.Gauge
	PatchesApplied      prometheus.Counter
	SummariesRequested  prometheus.Counter
	SummariesFailed     prometheus.Counter
	SummaryDuration     prometheus.Histogram
	AlertsPublished     prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates all metrics and registers them on reg
// (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		PatientsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_patients_loaded",
			Help: "Patients in the in-memory roster",
		}),
		PatchesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_patches_applied_total",
			Help: "Total patient patches applied",
		}),
		SummariesRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "summaries_requested_total",
			Help: "Total clinical summary requests",
		}),
		SummariesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "summaries_failed_total",
			Help: "Total clinical summary requests that ended in an error result",
		}),
		SummaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "summary_duration_seconds",
			Help:    "End-to-end summary pipeline duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_alerts_published_total",
			Help: "Total journey delay alerts published to the broker",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.PatientsLoaded,
		m.PatchesApplied,
		m.SummariesRequested,
		m.SummariesFailed,
		m.SummaryDuration,
		m.AlertsPublished,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
