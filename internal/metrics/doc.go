// Package metrics provides Prometheus instrumentation for the media catalog
// ingestion tools.
//
// All metrics are registered with promauto on the default registry and are
// prefixed with "media_catalog_". They are exposed over HTTP only when the
// CLI is started with METRICS_ADDR set.
//
// # Metric Categories
//
// ## Ingest Metrics
//
//   - IngestFilesTotal: Counter of candidate files by class and outcome
//   - IngestStageDuration: Histogram of stage duration by stage
//   - IngestStageFailures: Counter of failed files by the stage that failed
//   - IngestFilesInFlight: Gauge of files currently in the pipeline
//   - IngestBytesTotal: Counter of original bytes copied into the catalog
//
// ## Batch Metrics
//
//   - BatchRunsTotal, BatchIsRunning, BatchLastRunDuration,
//     BatchLastRunTimestamp, BatchLastRunFiles
//
// ## Face Detection Metrics
//
//   - DetectorInvocationsTotal: Counter by status
//   - DetectorDuration: Histogram of invocation time
//   - FacesDetected: Histogram of faces per image
//
// ## External Tool Metrics
//
// ffprobe, ffmpeg and the raw developer ("dcraw") are tracked under the "tool" label:
//   - ExternalToolInvocationsTotal, ExternalToolDuration
//
// ## Database Metrics
//
//   - DBQueryTotal, DBQueryDuration: per catalog operation
//   - CatalogEntities, CatalogBytes: refreshed by the Collector
//
// ## Filesystem and Memory Metrics
//
// NFS retry counters recorded by the filesystem package and backpressure
// gauges recorded by the memory monitor.
//
// # Initialization
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape:
//
//	metrics.InitializeMetrics()
//	collector := metrics.NewCollector(store, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
