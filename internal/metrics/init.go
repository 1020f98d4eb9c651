package metrics

// Label values shared with the packages that record them.
var (
	// Classes are the media classes used as the "class" label.
	Classes = []string{"image", "raw", "video"}

	// Outcomes are the per-file ingestion outcomes used as the "outcome" label.
	Outcomes = []string{"imported", "already_present", "skipped", "failed"}

	// Stages are the ingestion stage names used as the "stage" label.
	Stages = []string{"classify", "hash", "dedup", "copy", "decode", "detect",
		"thumbnail", "preview", "metadata", "emit"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, class := range Classes {
		for _, outcome := range Outcomes {
			IngestFilesTotal.WithLabelValues(class, outcome)
		}
		CatalogEntities.WithLabelValues(class)
	}

	for _, stage := range Stages {
		IngestStageDuration.WithLabelValues(stage)
		IngestStageFailures.WithLabelValues(stage)
	}

	for _, outcome := range Outcomes {
		BatchLastRunFiles.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error"} {
		DetectorInvocationsTotal.WithLabelValues(status)
		for _, tool := range []string{"ffprobe", "ffmpeg", "dcraw"} {
			ExternalToolInvocationsTotal.WithLabelValues(tool, status)
		}
	}
	ExternalToolDuration.WithLabelValues("ffprobe")
	ExternalToolDuration.WithLabelValues("ffmpeg")
	ExternalToolDuration.WithLabelValues("dcraw")

	volumes := []string{"dest", "database", "unknown"}
	for _, op := range []string{"stat", "open"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, op := range []string{"initialize_schema", "find_by_hash", "insert", "get",
		"delete", "count", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, ev := range []string{"create", "write", "rename", "remove"} {
		WatcherEventsTotal.WithLabelValues(ev)
	}
}
