// Package metrics holds the Prometheus collectors shared by the pipelines,
// the oracle clients and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values for SubmissionsTotal.
const (
	ResultStored       = "stored"
	ResultTaggedError  = "tagged_error"
	ResultInvalidInput = "invalid_input"
	ResultServiceError = "service_error"
)

var (
	// SubmissionsTotal counts orchestrator runs.
	// Labels: pipeline (expense, plan, chat), result (see Result* constants)
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeos",
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Total number of pipeline submissions by outcome",
		},
		[]string{"pipeline", "result"},
	)

	// NormalizerOutcomes counts how model responses were interpreted.
	// Labels: outcome (sequence, single_object, error_signal, unparsable, empty)
	NormalizerOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeos",
			Subsystem: "normalizer",
			Name:      "outcomes_total",
			Help:      "Total number of normalized model responses by outcome",
		},
		[]string{"outcome"},
	)

	// OracleRequestDuration tracks generation service latency.
	// Labels: provider (gemini, openai)
	OracleRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lifeos",
			Subsystem: "oracle",
			Name:      "request_duration_seconds",
			Help:      "Duration of generation service calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// HTTPRequestsTotal counts served HTTP requests.
	// Labels: method, code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeos",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{"method", "code"},
	)
)
