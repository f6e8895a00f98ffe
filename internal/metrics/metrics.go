package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalize_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocalize_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Auth metrics
	AuthRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vocalize_auth_rejections_total",
			Help: "Total number of rejected authentication attempts",
		},
	)

	SessionsMintedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vocalize_sessions_minted_total",
			Help: "Total number of session tokens minted",
		},
	)

	// Job metrics
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalize_jobs_created_total",
			Help: "Total number of inference jobs created",
		},
		[]string{"kind"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalize_jobs_completed_total",
			Help: "Total number of inference jobs reaching a terminal state",
		},
		[]string{"kind", "status"},
	)

	JobsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vocalize_jobs_queue_depth",
			Help: "Number of dispatch messages waiting for the worker",
		},
	)

	// Billing metrics
	CreditsDebitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalize_credits_debited_total",
			Help: "Total credits debited from user balances",
		},
		[]string{"kind"},
	)

	CreditsRefundedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalize_credits_refunded_total",
			Help: "Total credits refunded after downstream failures",
		},
		[]string{"kind"},
	)

	InsufficientCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vocalize_insufficient_credits_total",
			Help: "Total requests rejected for insufficient balance",
		},
	)

	// External call metrics
	InferenceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocalize_inference_call_duration_seconds",
			Help:    "Latency of calls to the inference service",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5 min
		},
		[]string{"kind", "outcome"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocalize_storage_operation_duration_seconds",
			Help:    "Latency of object storage operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ArtifactSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vocalize_artifact_size_bytes",
			Help:    "Size of stored artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~1GB
		},
	)
)
