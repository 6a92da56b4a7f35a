package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Job metrics
var (
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_submitted_total",
			Help: "Total number of jobs accepted by the orchestrator",
		},
		[]string{"kind"},
	)

	JobsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_rejected_total",
			Help: "Total number of submissions rejected synchronously",
		},
		[]string{"reason"}, // "invalid_parameters", "in_progress"
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_jobs_finished_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"kind", "state"}, // state: "succeeded", "failed", "cancelled"
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_job_duration_seconds",
			Help:    "Wall-clock duration of jobs from submission to terminal state",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"kind"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_jobs_in_progress",
			Help: "Number of jobs currently probing or running",
		},
	)

	JobProgressRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_job_progress_ratio",
			Help: "Normalized progress of the current job (0-1)",
		},
	)

	ChainedStagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_chained_stages_total",
			Help: "Total number of chained follow-up stages submitted",
		},
		[]string{"kind"},
	)
)

// Probe metrics
var (
	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_probe_total",
			Help: "Total number of duration probes by outcome",
		},
		[]string{"result"}, // "known", "unknown"
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_probe_duration_seconds",
			Help:    "Time taken to determine source duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Engine metrics
var (
	EngineExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_engine_executions_total",
			Help: "Total number of engine executions by outcome",
		},
		[]string{"result"}, // "success", "failure", "cancelled", "start_error"
	)

	EngineProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_engine_processes_running",
			Help: "Number of engine processes currently running",
		},
	)

	EngineLogLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_engine_log_lines_total",
			Help: "Total number of engine log lines by level",
		},
		[]string{"level"},
	)
)

// Output and filesystem metrics
var (
	OutputCleanupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_output_cleanup_total",
			Help: "Stale output file removals by outcome",
		},
		[]string{"result"}, // "removed", "absent", "failed"
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries after stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation"},
	)
)

// Watermark metrics
var (
	WatermarkPreparedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_watermark_prepared_total",
			Help: "Watermark preparations by outcome",
		},
		[]string{"result"}, // "resized", "unchanged", "remote", "error"
	)
)

// Download metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_downloads_total",
			Help: "Output downloads by result",
		},
		[]string{"result"}, // "served", "missing", "error"
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_download_bytes_total",
			Help: "Total bytes of output files sent to clients",
		},
	)
)

// Event feed metrics
var (
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_events_published_total",
			Help: "Total number of observer events published to the event feed",
		},
		[]string{"type"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPressure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_pressure",
			Help: "Whether new jobs are refused because memory is critical (1 = refusing)",
		},
	)

	MemoryPressureEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_memory_pressure_events_total",
			Help: "Number of times memory usage crossed the critical mark",
		},
	)

	GoMemLimitBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_gomemlimit_bytes",
			Help: "Configured Go runtime soft memory limit in bytes (0 = none)",
		},
	)
)

// Inbox metrics
var (
	InboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_inbox_events_total",
			Help: "Filesystem events seen in the watched directory by operation",
		},
		[]string{"op"}, // "create", "write", "remove", "rename", "chmod", "unknown"
	)

	InboxFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_inbox_files_total",
			Help: "Inbox files by outcome",
		},
		[]string{"result"}, // "queued", "skipped", "submitted", "rejected"
	)

	InboxQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_inbox_queue_depth",
			Help: "Settled inbox files waiting to be submitted",
		},
	)

	InboxWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_inbox_watched_directories",
			Help: "Directories registered with the inbox watcher",
		},
	)

	InboxWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_inbox_watcher_errors_total",
			Help: "Errors reported by the inbox file watcher",
		},
	)
)

// App info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// Job history metrics, refreshed by the Collector
var (
	JobHistoryTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_job_history_total",
			Help: "Number of jobs recorded in the history database by state",
		},
		[]string{"state"},
	)
)
