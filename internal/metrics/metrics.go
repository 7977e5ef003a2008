// Package metrics exposes Prometheus collectors for the investigation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Investigation pipeline metrics
	RCARunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_rca_runs_total",
			Help: "Total number of RCA runs by terminal status",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "causeway_rca_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	DocumentsRetrieved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "causeway_rca_documents_retrieved_total",
			Help: "Total documents returned by the similarity-search index",
		},
	)

	DocumentsKept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "causeway_rca_documents_kept_total",
			Help: "Total documents surviving the relevance filter",
		},
	)

	LogAnalysisFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "causeway_rca_log_analysis_fallbacks_total",
			Help: "Total log-analysis runs that degraded to the raw-log fallback",
		},
	)

	// Chat metrics
	ChatCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_chat_completions_total",
			Help: "Total chat completion requests by status",
		},
		[]string{"status"},
	)

	QuotaRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "causeway_chat_quota_rejections_total",
			Help: "Total chat requests rejected by the per-organization quota",
		},
	)

	// Telemetry metrics
	TelemetryPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "causeway_telemetry_publish_errors_total",
			Help: "Total telemetry events that failed to publish",
		},
	)
)
