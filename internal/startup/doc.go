// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]
// (or [ReadConfig], which skips logging and directory setup):
//
//   - OUTPUT_DIR: Directory for converted files (default: /output)
//   - WORK_DIR: Directory for intermediate files and prepared watermarks (default: OUTPUT_DIR/.work)
//   - DATABASE_DIR: Path to the job history database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - FFMPEG_PATH: FFmpeg binary (default: ffmpeg)
//   - FFPROBE_PATH: ffprobe binary (default: ffprobe)
//   - PROBE_TIMEOUT: Duration probe timeout as Go duration (default: 15s)
//   - WATERMARK_MAX_WIDTH: Watermarks wider than this are resized, 0 disables (default: 512)
//   - ENGINE_THREADS: Pin the engine -threads value (default: auto)
//   - EVENT_BUFFER: Number of events kept for the event feed (default: 500)
//   - WATCH_DIR: Directory whose new media files are converted automatically (default: disabled)
//   - WATCH_KIND: Operation for watched files - audio, video, hls, watermark (default: video)
//   - WATCH_WATERMARK: Watermark image for watched files; with video this runs the chain
//   - WATCH_QUALITY: Audio quality for watched files (default: medium)
//   - WATCH_SETTLE: How long a file must stay unchanged before it is queued (default: 2s)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: Go memory limit, see package memory
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//
//	startup.LogDatabaseInit(dbInitDuration, interrupted)
//	startup.LogEngineInit(config.FFmpegPath, config.FFprobePath)
//
//	startup.LogServerStarted(startup.ServerConfig{
//	    Port:            config.Port,
//	    MetricsPort:     config.MetricsPort,
//	    MetricsEnabled:  config.MetricsEnabled,
//	    StartupDuration: time.Since(startTime),
//	})
package startup
