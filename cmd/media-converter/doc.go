// Package main provides the entry point for the media converter service.
//
// The service accepts conversion jobs over HTTP, runs them one at a time
// through the ffmpeg binary and publishes normalized progress on a polled
// event feed. Every job is recorded in a SQLite history database.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and prepares the
//     output, work and database directories
//  2. Database Initialization: Opens the history database and marks jobs
//     left in flight by a previous run as interrupted
//  3. Component Initialization:
//     - Engine: ffmpeg exec wrapper with -progress parsing
//     - Prober: ffprobe duration lookup with timeout
//     - Watermark preparer: resizes oversized watermark images
//     - Orchestrator: the single-job state machine
//     - Event bus: bounded, sequenced event buffer
//     - Metrics collector: refreshes job history gauges every minute
//     - Memory monitor: refuses new jobs under heap pressure
//     - Inbox: converts files dropped into WATCH_DIR, when set
//  4. HTTP Server Setup: Routes, request id, logging and metrics middleware
//  5. Graceful Shutdown: Handles SIGINT/SIGTERM
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - POST /api/jobs, GET/DELETE /api/jobs/current
//     - GET /api/jobs, GET/DELETE /api/jobs/{id}
//     - GET/HEAD /api/jobs/{id}/output
//     - GET /api/events?since=N
//     - GET /api/inbox
//     - /health, /healthz, /livez, /readyz, /version
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests
//  2. Shutdown metrics server (if running)
//  3. Stop metrics collector and memory monitor
//  4. Stop the inbox watcher
//  5. Cancel the in-flight job and deliver its final events
//  6. Kill any remaining ffmpeg processes
//  7. Close database connections
//
// # Build Requirements
//
// CGO is required for SQLite. ffmpeg and ffprobe must be on PATH or set
// through FFMPEG_PATH and FFPROBE_PATH.
//
//	go build -o media-converter ./cmd/media-converter
package main
