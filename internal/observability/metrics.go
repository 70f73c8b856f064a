// Package observability provides prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribio_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CounterUpdateFailures counts failed denormalized counter mutations.
	// Counter updates never fail the enclosing request; a lost increment
	// shows up here and as drift between the counter and the backing table.
	CounterUpdateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribio_counter_update_failures_total",
		Help: "Total number of failed post/user counter updates by counter name",
	}, []string{"counter"})

	// CascadeCleanupFailures counts failed cascade deletions of dependent
	// records after a post was removed.
	CascadeCleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribio_cascade_cleanup_failures_total",
		Help: "Total number of failed projection cleanups on post deletion",
	}, []string{"projection"})

	// SnapshotRepairFailures counts failed denormalization repairs after a
	// username or avatar change.
	SnapshotRepairFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribio_snapshot_repair_failures_total",
		Help: "Total number of failed snapshot repairs by table",
	}, []string{"table"})

	// SpeechChunks records how many chunks a narration synthesis was split into.
	SpeechChunks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scribio_speech_chunks_per_post",
		Help:    "Number of text-to-speech chunks per synthesized post",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	// MailSendFailures counts failed transactional email deliveries.
	MailSendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribio_mail_send_failures_total",
		Help: "Total number of failed transactional mail deliveries by template",
	}, []string{"template"})

	// UploadFailures counts failed object storage uploads.
	UploadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribio_upload_failures_total",
		Help: "Total number of failed object storage uploads by kind",
	}, []string{"kind"})
)
