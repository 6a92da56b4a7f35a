// Package metrics provides Prometheus instrumentation for the media converter.
//
// All metrics are prefixed with "media_converter_" and registered through
// promauto on package initialization.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Job Metrics
//
//   - JobsSubmittedTotal: Jobs accepted, by operation kind
//   - JobsRejectedTotal: Submissions rejected synchronously, by reason
//   - JobsFinishedTotal: Terminal outcomes, by kind and state
//   - JobDuration: Submission-to-terminal wall clock time, by kind
//   - JobsInProgress: Gauge of jobs probing or running (0 or 1 per orchestrator)
//   - JobProgressRatio: Normalized progress of the current job
//   - ChainedStagesTotal: Follow-up stages submitted after a first stage succeeded
//
// ## Probe and Engine Metrics
//
//   - ProbeTotal / ProbeDuration: Duration probe outcomes and latency
//   - EngineExecutionsTotal: Engine runs by result
//   - EngineProcessesRunning: Gauge of live engine processes
//   - EngineLogLinesTotal: Relayed engine log lines by level
//
// ## Filesystem Metrics
//
//   - OutputCleanupTotal: Stale output removal outcomes
//   - FilesystemRetryAttempts / FilesystemRetryFailures / FilesystemStaleErrors:
//     NFS stale-handle retry behavior
//
// ## History Metrics
//
//   - JobHistoryTotal: Jobs recorded in the history database by state,
//     refreshed periodically by [Collector]
//
// # Exposition
//
// Mount promhttp.Handler() on the metrics port:
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// Call [InitializeMetrics] once at startup so every label combination is
// exported from the first scrape.
package metrics
