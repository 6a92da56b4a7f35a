package metrics

import "media-converter/internal/mediatypes"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, kind := range mediatypes.AllKinds {
		k := string(kind)
		JobsSubmittedTotal.WithLabelValues(k)
		JobDuration.WithLabelValues(k)
		ChainedStagesTotal.WithLabelValues(k)
		for _, state := range []string{"succeeded", "failed", "cancelled"} {
			JobsFinishedTotal.WithLabelValues(k, state)
		}
	}

	for _, reason := range []string{"invalid_parameters", "in_progress", "memory_pressure"} {
		JobsRejectedTotal.WithLabelValues(reason)
	}

	for _, result := range []string{"known", "unknown"} {
		ProbeTotal.WithLabelValues(result)
	}

	for _, result := range []string{"success", "failure", "cancelled", "start_error"} {
		EngineExecutionsTotal.WithLabelValues(result)
	}

	for _, level := range []string{"debug", "info", "warn", "error"} {
		EngineLogLinesTotal.WithLabelValues(level)
	}

	for _, result := range []string{"removed", "absent", "failed"} {
		OutputCleanupTotal.WithLabelValues(result)
	}

	for _, op := range []string{"stat", "remove", "mkdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, result := range []string{"resized", "unchanged", "remote", "error"} {
		WatermarkPreparedTotal.WithLabelValues(result)
	}

	for _, result := range []string{"served", "missing", "error"} {
		DownloadsTotal.WithLabelValues(result)
	}

	for _, op := range []string{"create", "write", "remove", "rename", "chmod", "unknown"} {
		InboxEventsTotal.WithLabelValues(op)
	}

	for _, result := range []string{"queued", "skipped", "submitted", "rejected"} {
		InboxFilesTotal.WithLabelValues(result)
	}

	for _, eventType := range []string{"submitted", "progress", "completed", "failed", "cancelled"} {
		EventsPublishedTotal.WithLabelValues(eventType)
	}

	for _, op := range []string{"initialize_schema", "insert_job", "finish_job", "mark_interrupted", "list_jobs", "get_job", "has_succeeded", "job_stats", "get_metadata", "set_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
