// Package metrics provides Prometheus metrics for the attachment service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage backend metrics
	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attachments_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachments_storage_operations_total",
			Help: "Total storage backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	selectedBackend = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attachments_selected_backend",
			Help: "Storage backend chosen at startup (1 for the active kind)",
		},
		[]string{"kind"},
	)

	// Content transfer metrics
	contentBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attachments_content_bytes_uploaded_total",
			Help: "Total attachment bytes uploaded to the storage backend",
		},
	)

	contentBytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attachments_content_bytes_downloaded_total",
			Help: "Total attachment bytes streamed to readers",
		},
	)

	contentUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachments_content_uploads_total",
			Help: "Total number of attachment uploads",
		},
		[]string{"status"},
	)

	// Status gate metrics
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachments_gate_decisions_total",
			Help: "Status gate decisions by outcome",
		},
		[]string{"decision"},
	)

	// Compensation metrics
	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachments_compensations_total",
			Help: "Compensating deletes run after failed transactions",
		},
		[]string{"status"},
	)

	// Upload journal metrics
	journalQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attachments_journal_query_duration_seconds",
			Help:    "Upload journal query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	orphansSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attachments_orphans_swept_total",
			Help: "Orphaned uploads removed by the journal sweep",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordStorageOperation records a storage backend operation.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	storageOperationsTotal.WithLabelValues(backend, operation, statusLabel(success)).Inc()
}

// SetSelectedBackend marks kind as the active backend.
func SetSelectedBackend(kind string) {
	selectedBackend.Reset()
	selectedBackend.WithLabelValues(kind).Set(1)
}

// RecordContentUpload records an attachment upload.
func RecordContentUpload(bytes int64, success bool) {
	contentBytesUploaded.Add(float64(bytes))
	contentUploadsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordContentDownload records bytes streamed out of a lazy content stream.
func RecordContentDownload(bytes int64) {
	contentBytesDownloaded.Add(float64(bytes))
}

// RecordGateDecision records a status gate outcome.
func RecordGateDecision(decision string) {
	gateDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordCompensation records a compensating delete.
func RecordCompensation(success bool) {
	compensationsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordOrphansSwept adds n to the orphan sweep counter.
func RecordOrphansSwept(n int) {
	orphansSweptTotal.Add(float64(n))
}

// RecordJournalQuery records an upload journal query.
func RecordJournalQuery(query string, duration time.Duration) {
	journalQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
