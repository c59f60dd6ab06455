// Package metrics collects the process-wide Prometheus metrics exposed at
// `/metrics` (spec.md §6.1). Grounded on cuemby-warren's pkg/metrics: one
// package-level var per collector, registered in init, plus a Handler and
// a Timer helper for histogram observations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform/freshdesk"
)

var (
	// HTTP boundary metrics.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsy_ingest_http_requests_total",
			Help: "Total HTTP requests by method, route, and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tarsy_ingest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsy_ingest_rate_limit_rejections_total",
			Help: "Total requests rejected by the rate limiter, by bucket.",
		},
		[]string{"bucket"},
	)

	// Ingestion Engine / Job Manager metrics (C6/C7).
	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsy_ingest_jobs_total",
			Help: "Total ingestion jobs by terminal status.",
		},
		[]string{"status"},
	)

	IngestJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tarsy_ingest_job_duration_seconds",
			Help:    "Ingestion job duration in seconds, start to terminal state.",
			Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 14400},
		},
	)

	TicketsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsy_ingest_tickets_ingested_total",
			Help: "Total tickets collected by the Ingestion Engine, by tenant and platform.",
		},
		[]string{"tenant_id", "platform"},
	)

	// LLM Router metrics (C4).
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsy_ingest_llm_requests_total",
			Help: "Total LLM Router calls by provider, task type, and outcome.",
		},
		[]string{"provider", "task_type", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tarsy_ingest_llm_request_duration_seconds",
			Help:    "LLM Router call duration in seconds by provider and task type.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "task_type"},
	)

	LLMFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsy_ingest_llm_fallbacks_total",
			Help: "Total times the Router fell back from its first-ranked provider.",
		},
		[]string{"task_type"},
	)

	// Vector Store Adapter metrics (C3).
	VectorSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tarsy_ingest_vector_search_duration_seconds",
			Help:    "Vector store similarity search duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	VectorUpsertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tarsy_ingest_vector_upserts_total",
			Help: "Total points upserted into the vector store.",
		},
	)

	// Summarizer metrics (C5).
	SummaryQualityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tarsy_ingest_summary_quality_score",
			Help:    "Weighted quality score assigned to generated summaries.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimitRejectionsTotal,
		IngestJobsTotal,
		IngestJobDuration,
		TicketsIngestedTotal,
		LLMRequestsTotal,
		LLMRequestDuration,
		LLMFallbacksTotal,
		VectorSearchDuration,
		VectorUpsertsTotal,
		SummaryQualityScore,
		// Owned by pkg/platform/freshdesk, registered here so every
		// collector has exactly one registration site.
		freshdesk.RateLimitUsedCounter,
	)
}

// Handler returns the Prometheus HTTP handler for the `/metrics` route.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation for later observation against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time against histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time against a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the Timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
