package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"media-converter/internal/command"
	"media-converter/internal/database"
	"media-converter/internal/engine"
	"media-converter/internal/events"
	"media-converter/internal/filesystem"
	"media-converter/internal/handlers"
	"media-converter/internal/inbox"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/memory"
	"media-converter/internal/metrics"
	"media-converter/internal/middleware"
	"media-converter/internal/orchestrator"
	"media-converter/internal/output"
	"media-converter/internal/playlist"
	"media-converter/internal/probe"
	"media-converter/internal/startup"
	"media-converter/internal/watermark"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	ctx := context.Background()

	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	interrupted, err := db.MarkInterrupted(ctx)
	if err != nil {
		logging.Warn("Failed to mark interrupted jobs: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart), interrupted)

	startup.LogEngineInit(config.FFmpegPath, config.FFprobePath)
	ffmpeg := engine.NewFFmpeg(config.FFmpegPath)

	orch, err := orchestrator.New(orchestrator.Config{
		Engine:    ffmpeg,
		Prober:    probe.NewProber(playlist.NewInspector(probe.NewFFprobe(config.FFprobePath)), config.ProbeTimeout),
		Resolver:  output.NewResolver(config.OutputDir, config.WorkDir),
		Builder:   command.NewBuilder(config.EngineThreads),
		Journal:   db,
		Watermark: watermark.NewPreparer(config.WorkDir, config.WatermarkMaxWidth),
	})
	if err != nil {
		startup.LogFatal("Failed to initialize orchestrator: %v", err)
	}

	bus := events.NewBus(config.EventBuffer)

	collector := metrics.NewCollector(db, collectorInterval)
	collector.Start()

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	h := handlers.New(orch, bus, db, ffmpeg)
	h.SetMemoryStatus(memMonitor)

	var stopInbox func()
	if config.WatchDir != "" {
		watcher, err := newInbox(config, orch, bus, db)
		if err != nil {
			startup.LogFatal("Failed to initialize inbox: %v", err)
		}
		h.SetInbox(watcher)
		stopInbox = runInbox(ctx, watcher)
	}
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := newServer(":"+config.Port, router)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(":" + config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case err := <-serverErr:
		logging.Error("Server error: %v", err)
		startup.LogShutdownInitiated("server error")
	}

	shutdown(shutdownDeps{
		srv:        srv,
		metricsSrv: metricsSrv,
		collector:  collector,
		memory:     memMonitor,
		stopInbox:  stopInbox,
		orch:       orch,
		ffmpeg:     ffmpeg,
		db:         db,
	})
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(loggingConfig))
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Current job
	api.HandleFunc("/jobs", h.SubmitJob).Methods("POST")
	api.HandleFunc("/jobs/current", h.GetCurrentJob).Methods("GET")
	api.HandleFunc("/jobs/current", h.CancelCurrentJob).Methods("DELETE")

	// History
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.CancelJob).Methods("DELETE")
	api.HandleFunc("/jobs/{id}/output", h.GetJobOutput).Methods("GET", "HEAD")

	// Event feed
	api.HandleFunc("/events", h.GetEvents).Methods("GET")

	// Watch folder
	api.HandleFunc("/inbox", h.GetInbox).Methods("GET")

	return r
}

func newInbox(config *startup.Config, orch *orchestrator.Orchestrator, bus *events.Bus, db *database.Database) (*inbox.Watcher, error) {
	if err := filesystem.MkdirAllWithRetry(config.WatchDir, 0o755, filesystem.DefaultRetryConfig()); err != nil {
		return nil, err
	}
	return inbox.New(inbox.Config{
		Dir:       config.WatchDir,
		Kind:      config.WatchKind,
		Watermark: mediatypes.SourceRef(config.WatchWatermark),
		Quality:   config.WatchQuality,
		Settle:    config.WatchSettle,
		Exclude:   []string{config.OutputDir, config.WorkDir, config.DatabaseDir},
	}, orch, bus, db)
}

// runInbox starts the watcher and returns a func that stops it and waits.
func runInbox(ctx context.Context, watcher *inbox.Watcher) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := watcher.Run(ctx); err != nil {
			logging.Error("Inbox stopped: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(addr string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", handlers.MetricsHandler())
	return &http.Server{
		Addr:         addr,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

type shutdownDeps struct {
	srv        *http.Server
	metricsSrv *http.Server
	collector  *metrics.Collector
	memory     *memory.Monitor
	stopInbox  func()
	orch       *orchestrator.Orchestrator
	ffmpeg     *engine.FFmpeg
	db         *database.Database
}

// shutdown stops accepting requests and the inbox, cancels the running job,
// kills any remaining engine process and closes the database, in that order.
func shutdown(deps shutdownDeps) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := deps.srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if deps.metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := deps.metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping metrics collector")
	deps.collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if deps.memory != nil {
		deps.memory.Stop()
	}

	if deps.stopInbox != nil {
		startup.LogShutdownStep("Stopping inbox watcher")
		deps.stopInbox()
		startup.LogShutdownStepComplete("Inbox watcher stopped")
	}

	startup.LogShutdownStep("Cancelling in-flight job")
	deps.orch.Close()
	startup.LogShutdownStepComplete("Orchestrator closed")

	startup.LogShutdownStep("Stopping engine processes")
	deps.ffmpeg.Cleanup()
	startup.LogShutdownStepComplete("Engine processes stopped")

	startup.LogShutdownStep("Closing database")
	if err := deps.db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
