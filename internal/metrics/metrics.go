// Package metrics holds the process-wide Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pranara_turns_total",
			Help: "Total number of handled turns by outcome and topic.",
		},
		[]string{"outcome", "topic"},
	)

	TurnsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pranara_turns_in_flight",
			Help: "Number of turns currently holding a session lock.",
		},
	)

	RedactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pranara_redactions_total",
			Help: "Total number of PII redactions by category.",
		},
		[]string{"category"},
	)

	HandoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pranara_handoffs_total",
			Help: "Total number of handoff recommendations by reason.",
		},
		[]string{"reason"},
	)

	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pranara_provider_calls_total",
			Help: "Total number of provider invocations by result (ok, transient, fatal, canceled).",
		},
		[]string{"result"},
	)

	ProviderRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pranara_provider_retries_total",
			Help: "Total number of provider retries after a transient failure.",
		},
	)

	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pranara_provider_duration_seconds",
			Help:    "Provider call duration in seconds, including retries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pranara_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pranara_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		TurnsTotal,
		TurnsInFlight,
		RedactionsTotal,
		HandoffsTotal,
		ProviderCallsTotal,
		ProviderRetriesTotal,
		ProviderDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}
