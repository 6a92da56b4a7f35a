package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-converter/internal/orchestrator"
	"media-converter/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"

	healthCheckTimeout = 2 * time.Second
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string             `json:"status"`
	Ready    bool               `json:"ready"`
	Version  string             `json:"version"`
	Uptime   string             `json:"uptime"`
	JobState orchestrator.State `json:"jobState"`

	Database    string `json:"database"`
	Engine      string `json:"engine"`
	EngineError string `json:"engineError,omitempty"`

	MemoryUsage    float64 `json:"memoryUsage,omitempty"`
	MemoryPressure bool    `json:"memoryPressure"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

type dependencyStatus struct {
	database  error
	engine    error
	dbChecked bool
}

func (d dependencyStatus) ready() bool {
	return d.database == nil && d.engine == nil
}

func (h *Handlers) checkDependencies(ctx context.Context) dependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var status dependencyStatus
	if h.history != nil {
		status.dbChecked = true
		status.database = h.history.Ping(ctx)
	}
	if h.engine != nil {
		status.engine = h.engine.CheckAvailable()
	}
	return status
}

func checkString(checked bool, err error) string {
	switch {
	case !checked:
		return "disabled"
	case err != nil:
		return "error"
	default:
		return "ok"
	}
}

// HealthCheck returns the health status of the service. It answers 503 when
// the database or engine is unavailable.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	deps := h.checkDependencies(r.Context())

	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        deps.ready(),
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		JobState:     h.orch.State(),
		Database:     checkString(deps.dbChecked, deps.database),
		Engine:       checkString(h.engine != nil, deps.engine),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if deps.engine != nil {
		response.EngineError = deps.engine.Error()
	}
	if h.memory != nil {
		response.MemoryUsage = h.memory.Usage()
		response.MemoryPressure = h.memory.UnderPressure()
	}

	statusCode := http.StatusOK
	if !response.Ready {
		response.Status = statusDegraded
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, statusCode, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database and engine are usable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.checkDependencies(r.Context()).ready() {
		writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
