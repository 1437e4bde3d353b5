// Package metrics exposes Prometheus collectors for the ingest pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestFilesTotal     *prometheus.CounterVec
	ingestRecordsTotal   *prometheus.CounterVec
	ingestSkipsTotal     *prometheus.CounterVec
	ingestItemsUploaded  prometheus.Counter
	cleanupItemsRemoved  *prometheus.CounterVec
	ingestActiveUploads  prometheus.Gauge
	ingestGroupFlushes   prometheus.Counter

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		ingestFilesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_files_total",
				Help: "Total number of input files attempted, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		ingestRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_records_total",
				Help: "Total raw records seen, labeled by source profile.",
			},
			[]string{"source"},
		)

		ingestSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_record_skips_total",
				Help: "Records skipped during normalization, labeled by reason.",
			},
			[]string{"reason"},
		)

		ingestItemsUploaded = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_items_uploaded_total",
				Help: "Items the catalog API accepted across all batches.",
			},
		)

		cleanupItemsRemoved = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cleanup_items_removed_total",
				Help: "Catalog items removed by the repairer, labeled by kind.",
			},
			[]string{"kind"},
		)

		ingestActiveUploads = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ingest_active_uploads",
				Help: "Number of file uploads currently in flight.",
			},
		)

		ingestGroupFlushes = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_log_flushes_total",
				Help: "Times the processed log was persisted after a group barrier.",
			},
		)
	})
}

// FileProcessed records one finished file attempt.
func FileProcessed(success bool) {
	if ingestFilesTotal == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	ingestFilesTotal.WithLabelValues(outcome).Inc()
}

// RecordsSeen counts raw records read from a file for the given source profile.
func RecordsSeen(sourceName string, n int) {
	if ingestRecordsTotal == nil {
		return
	}
	ingestRecordsTotal.WithLabelValues(sourceName).Add(float64(n))
}

// RecordSkipped counts one normalization skip by reason.
func RecordSkipped(reason string) {
	if ingestSkipsTotal == nil {
		return
	}
	ingestSkipsTotal.WithLabelValues(reason).Inc()
}

// ItemsUploaded adds to the accepted-item total.
func ItemsUploaded(n int) {
	if ingestItemsUploaded == nil {
		return
	}
	ingestItemsUploaded.Add(float64(n))
}

// ItemsRemoved counts catalog rows removed by the repairer.
func ItemsRemoved(kind string, n int) {
	if cleanupItemsRemoved == nil {
		return
	}
	cleanupItemsRemoved.WithLabelValues(kind).Add(float64(n))
}

// UploadStarted marks an in-flight upload.
func UploadStarted() {
	if ingestActiveUploads == nil {
		return
	}
	ingestActiveUploads.Inc()
}

// UploadFinished clears an in-flight upload.
func UploadFinished() {
	if ingestActiveUploads == nil {
		return
	}
	ingestActiveUploads.Dec()
}

// LogFlushed counts one processed-log persistence.
func LogFlushed() {
	if ingestGroupFlushes == nil {
		return
	}
	ingestGroupFlushes.Inc()
}
