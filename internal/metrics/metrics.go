// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ragdoc"

// Result label values.
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultNoContent = "no_content"
)

var (
	// IngestTotal counts ingestion attempts.
	// Labels: result (success, error, no_content)
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "total",
			Help:      "Total number of document ingestions by result",
		},
		[]string{"result"},
	)

	// IngestChunks tracks how many chunks each ingested document produced.
	IngestChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks",
			Help:      "Number of chunks produced per ingested document",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// QueryTotal counts retrieval queries.
	// Labels: result (success, error)
	QueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "total",
			Help:      "Total number of questions answered by result",
		},
		[]string{"result"},
	)

	// RouterRequests counts completion backend calls.
	// Labels: backend, result (success, error)
	RouterRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "requests_total",
			Help:      "Total number of completion requests by backend and result",
		},
		[]string{"backend", "result"},
	)

	// ConsistencyWarnings counts saved/indexed chunk count mismatches.
	ConsistencyWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_warnings_total",
			Help:      "Total number of metadata/index chunk count mismatches detected",
		},
	)

	// ReindexJobs counts processed reindex jobs.
	// Labels: result (success, retry, failed)
	ReindexJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reindex",
			Name:      "jobs_total",
			Help:      "Total number of reindex jobs processed by result",
		},
		[]string{"result"},
	)

	// HTTPRequests counts served HTTP requests.
	// Labels: method, status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{"method", "status"},
	)

	// HTTPDuration tracks HTTP request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
