// Package metrics defines the Prometheus instruments for the registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AuthChallengesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_challenges_issued_total",
			Help: "Total number of signing challenges issued",
		},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	ProjectTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_transitions_total",
			Help: "Total number of project status transitions by target status",
		},
		[]string{"to_status"},
	)

	NDVIScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ndvi_scans_ingested_total",
			Help: "Total number of NDVI scans ingested",
		},
	)

	AlertsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_emitted_total",
			Help: "Total number of alerts emitted by type",
		},
		[]string{"type"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// Register registers all Prometheus metrics.
func Register() {
	prometheus.MustRegister(AuthChallengesTotal)
	prometheus.MustRegister(AuthLoginsTotal)
	prometheus.MustRegister(ProjectTransitionsTotal)
	prometheus.MustRegister(NDVIScansTotal)
	prometheus.MustRegister(AlertsEmittedTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}
