package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Defaults for the environment variables read by ReadConfig.
const (
	DefaultOutputDir         = "/output"
	DefaultDatabaseDir       = "/database"
	DefaultPort              = "8080"
	DefaultMetricsPort       = "9090"
	DefaultFFmpegPath        = "ffmpeg"
	DefaultFFprobePath       = "ffprobe"
	DefaultProbeTimeout      = 15 * time.Second
	DefaultWatermarkMaxWidth = 512
	DefaultEventBuffer       = 500
	DefaultWatchKind         = mediatypes.VideoTranscode
	DefaultWatchSettle       = 2 * time.Second

	databaseFile = "jobs.db"
	workDirName  = ".work"
	threadsLimit = 16
)

// Config holds all application configuration
type Config struct {
	OutputDir         string
	WorkDir           string
	DatabaseDir       string
	Port              string
	MetricsPort       string
	MetricsEnabled    bool
	LogHealthChecks   bool
	FFmpegPath        string
	FFprobePath       string
	ProbeTimeout      time.Duration
	WatermarkMaxWidth int
	EventBuffer       int

	// EngineThreads is passed to -threads for watermark overlays; 0 is auto.
	EngineThreads int

	// Inbox settings; an empty WatchDir disables the watcher.
	WatchDir       string
	WatchKind      mediatypes.OperationKind
	WatchWatermark string
	WatchQuality   mediatypes.AudioQuality
	WatchSettle    time.Duration

	// Derived paths
	DatabasePath string
}

// SetOutputDir points the config at another output directory. The work
// directory follows it unless WORK_DIR is set.
func (c *Config) SetOutputDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory path: %w", err)
	}
	c.OutputDir = abs
	if os.Getenv("WORK_DIR") == "" {
		c.WorkDir = filepath.Join(abs, workDirName)
	}
	return nil
}

// ReadConfig reads configuration from environment variables without logging
// or touching the filesystem. Invalid values fall back to their defaults.
func ReadConfig() (*Config, error) {
	outputDir, err := filepath.Abs(getEnv("OUTPUT_DIR", DefaultOutputDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}

	workDir := getEnv("WORK_DIR", filepath.Join(outputDir, workDirName))
	if workDir, err = filepath.Abs(workDir); err != nil {
		return nil, fmt.Errorf("failed to resolve work directory path: %w", err)
	}

	databaseDir, err := filepath.Abs(getEnv("DATABASE_DIR", DefaultDatabaseDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	watchDir := os.Getenv("WATCH_DIR")
	if watchDir != "" {
		if watchDir, err = filepath.Abs(watchDir); err != nil {
			return nil, fmt.Errorf("failed to resolve watch directory path: %w", err)
		}
	}
	watchKind := mediatypes.OperationKind(getEnv("WATCH_KIND", string(DefaultWatchKind)))
	if !watchKind.Valid() {
		watchKind = DefaultWatchKind
	}
	watchQuality, err := mediatypes.ParseAudioQuality(getEnv("WATCH_QUALITY", "medium"))
	if err != nil {
		watchQuality = mediatypes.QualityMedium
	}

	return &Config{
		OutputDir:         outputDir,
		WorkDir:           workDir,
		DatabaseDir:       databaseDir,
		Port:              getEnv("PORT", DefaultPort),
		MetricsPort:       getEnv("METRICS_PORT", DefaultMetricsPort),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks:   getEnvBool("LOG_HEALTH_CHECKS", true),
		FFmpegPath:        getEnv("FFMPEG_PATH", DefaultFFmpegPath),
		FFprobePath:       getEnv("FFPROBE_PATH", DefaultFFprobePath),
		ProbeTimeout:      getEnvDuration("PROBE_TIMEOUT", DefaultProbeTimeout),
		WatermarkMaxWidth: getEnvInt("WATERMARK_MAX_WIDTH", DefaultWatermarkMaxWidth),
		EventBuffer:       getEnvInt("EVENT_BUFFER", DefaultEventBuffer),
		EngineThreads:     workers.EngineThreads(threadsLimit),
		WatchDir:          watchDir,
		WatchKind:         watchKind,
		WatchWatermark:    os.Getenv("WATCH_WATERMARK"),
		WatchQuality:      watchQuality,
		WatchSettle:       getEnvDuration("WATCH_SETTLE", DefaultWatchSettle),
		DatabasePath:      filepath.Join(databaseDir, databaseFile),
	}, nil
}

// LoadConfig prints the banner, reads and logs the configuration, and
// prepares the output, work and database directories.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := ReadConfig()
	if err != nil {
		return nil, err
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  OUTPUT_DIR:          %s", config.OutputDir)
	logging.Info("  WORK_DIR:            %s", config.WorkDir)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  FFMPEG_PATH:         %s", config.FFmpegPath)
	logging.Info("  FFPROBE_PATH:        %s", config.FFprobePath)
	logging.Info("  PROBE_TIMEOUT:       %v", config.ProbeTimeout)
	logging.Info("  WATERMARK_MAX_WIDTH: %d", config.WatermarkMaxWidth)
	logging.Info("  ENGINE_THREADS:      %s", threadsString(config.EngineThreads))
	logging.Info("  EVENT_BUFFER:        %d", config.EventBuffer)
	if config.WatchDir != "" {
		logging.Info("  WATCH_DIR:           %s", config.WatchDir)
		logging.Info("  WATCH_KIND:          %s", config.WatchKind)
		logging.Info("  WATCH_SETTLE:        %v", config.WatchSettle)
		if config.WatchWatermark != "" {
			logging.Info("  WATCH_WATERMARK:     %s", config.WatchWatermark)
		}
	} else {
		logging.Info("  WATCH_DIR:           (disabled)")
	}
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if err := SetupDirectories(config); err != nil {
		return nil, err
	}
	return config, nil
}

// SetupDirectories creates the output, work and database directories and
// verifies they are writable. All three are required.
func SetupDirectories(config *Config) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dirs := []struct {
		name string
		path string
	}{
		{"output", config.OutputDir},
		{"work", config.WorkDir},
		{"database", config.DatabaseDir},
	}

	for _, d := range dirs {
		if err := ensureDirectory(d.path, d.name); err != nil {
			return fmt.Errorf("%s directory error: %w", d.name, err)
		}
		logging.Debug("  Testing %s directory write access...", d.name)
		if err := testWriteAccess(d.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
		logging.Info("  [OK] %s directory is writable: %s", d.name, d.path)
	}
	return nil
}

func threadsString(threads int) string {
	if threads <= 0 {
		return "auto"
	}
	return strconv.Itoa(threads)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration, interrupted int64) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
	if interrupted > 0 {
		logging.Warn("  Marked %d unfinished job(s) from a previous run as interrupted", interrupted)
	}
}

// LogEngineInit logs engine initialization and checks the FFmpeg binaries
func LogEngineInit(ffmpegPath, ffprobePath string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ENGINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := checkFFmpeg(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Jobs will fail with engine_submission_failed")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}

	if _, err := exec.LookPath(ffprobePath); err != nil {
		logging.Warn("  ffprobe not found (%s); progress will stay at 0 until completion", ffprobePath)
	} else {
		logging.Info("  [OK] ffprobe is available")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api/jobs", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          ______
   /  |/  /__  ____/ (_)___ _   / ____/___  ____ _   __
  / /|_/ / _ \/ __  / / __ '/  / /   / __ \/ __ \ | / /
 / /  / /  __/ /_/ / / /_/ /  / /___/ /_/ / / / / |/ /
/_/  /_/\___/\__,_/_/\__,_/   \____/\____/_/ /_/|___/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg(ffmpegPath string) error {
	path, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", ffmpegPath)
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(first))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
