package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest metrics
var (
	IngestFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_ingest_files_total",
			Help: "Total number of candidate files processed by media class and outcome",
		},
		[]string{"class", "outcome"},
	)

	IngestStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_ingest_stage_duration_seconds",
			Help:    "Duration of each ingestion stage in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	IngestStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_ingest_stage_failures_total",
			Help: "Total number of files that failed, by the stage they failed in",
		},
		[]string{"stage"},
	)

	IngestFilesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_ingest_files_in_flight",
			Help: "Number of files currently being ingested",
		},
	)

	IngestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_ingest_bytes_total",
			Help: "Total size in bytes of originals copied into the catalog",
		},
	)
)

// Batch metrics
var (
	BatchRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_batch_runs_total",
			Help: "Total number of batch import runs",
		},
	)

	BatchIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_batch_running",
			Help: "Whether a batch import is currently running (1 = running, 0 = idle)",
		},
	)

	BatchLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_batch_last_run_duration_seconds",
			Help: "Duration of the last batch import in seconds",
		},
	)

	BatchLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_batch_last_run_timestamp",
			Help: "Unix timestamp of the last batch import completion",
		},
	)

	BatchLastRunFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_batch_last_run_files",
			Help: "Number of files in the last batch import by outcome",
		},
		[]string{"outcome"},
	)
)

// Face detection metrics
var (
	DetectorInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_detector_invocations_total",
			Help: "Total number of face detector invocations",
		},
		[]string{"status"},
	)

	DetectorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_detector_duration_seconds",
			Help:    "Face detector invocation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	FacesDetected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_faces_detected",
			Help:    "Number of faces detected per image",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)
)

// External tool metrics
var (
	ExternalToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_external_tool_invocations_total",
			Help: "Total number of ffprobe, ffmpeg and raw developer invocations",
		},
		[]string{"tool", "status"},
	)

	ExternalToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_external_tool_duration_seconds",
			Help:    "Duration of ffprobe, ffmpeg and raw developer invocations in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	CatalogEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_entities",
			Help: "Number of catalog entities by media class",
		},
		[]string{"class"},
	)

	CatalogBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_entities_size_bytes",
			Help: "Total size of all cataloged originals in bytes",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after a stale NFS handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_filesystem_retry_duration_seconds",
			Help:    "Total duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_memory_paused",
			Help: "Whether ingestion is paused due to memory pressure (1 = paused, 0 = running)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_memory_gc_pauses_total",
			Help: "Total number of times ingestion was paused for memory pressure",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
