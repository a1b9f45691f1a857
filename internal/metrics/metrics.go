// Package metrics defines the Prometheus instruments of the service. They are
// registered with the default registry and exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for RecommendRequests.
const (
	OutcomeOK              = "ok"
	OutcomeEmptyCorpus     = "empty_corpus"
	OutcomeNoMatch         = "no_match"
	OutcomeUnknownCategory = "unknown_category"
	OutcomeError           = "error"
)

var (
	// RecommendRequests counts recommendation requests by outcome.
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// RecommendDuration tracks end-to-end recommendation latency.
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Recommendation latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// RecommendResults counts returned results by source.
	RecommendResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_results_total",
			Help: "Total results returned by source (content, collaborative)",
		},
		[]string{"source"},
	)

	// QueryLogErrors counts failed query log operations.
	QueryLogErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_log_errors_total",
			Help: "Failed query log operations",
		},
		[]string{"operation"},
	)

	// APIRequestsTotal counts HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "route", "status"},
	)

	// APIRequestDuration tracks HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// EnrichPages counts site pages processed by the enricher.
	EnrichPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_pages_total",
			Help: "Site pages processed by outcome (fetched, disallowed, failed, skipped)",
		},
		[]string{"outcome"},
	)
)
