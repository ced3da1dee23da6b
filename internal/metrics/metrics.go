package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Record metrics
	RecordsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_records_enqueued_total",
			Help: "Total number of records accepted into the queue",
		},
		[]string{"app"},
	)

	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_records_dropped_total",
			Help: "Total number of records dropped",
		},
		[]string{"app", "reason"}, // reason: overflow, retry_exhausted, permanent, shutdown
	)

	RecordsTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_records_truncated_total",
			Help: "Total number of record messages truncated to the size limit",
		},
		[]string{"app"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logship_queue_depth",
			Help: "Current number of records waiting in the queue",
		},
		[]string{"app"},
	)

	HookPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_hook_panics_total",
			Help: "Total number of panics recovered from user metadata hooks",
		},
		[]string{"app", "hook"}, // hook: metadata, extra_fields
	)

	// Delivery metrics
	BatchesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_batches_sent_total",
			Help: "Total number of batches by terminal outcome",
		},
		[]string{"app", "status"}, // status: delivered, dropped
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logship_batch_size_records",
			Help:    "Number of records per sent batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	SendAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_send_attempts_total",
			Help: "Total number of transport send attempts",
		},
		[]string{"app", "status"}, // status: success, retryable, permanent
	)

	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logship_send_duration_seconds",
			Help:    "Time taken by a single transport send attempt",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	SendRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_send_retries_total",
			Help: "Total number of batch send retries after a retryable failure",
		},
		[]string{"app"},
	)

	BytesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_bytes_sent_total",
			Help: "Total compressed payload bytes handed to the transport",
		},
		[]string{"app"},
	)
)
