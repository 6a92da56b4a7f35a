package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-converter/internal/command"
	"media-converter/internal/database"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/orchestrator"
)

const (
	maxRequestBody    = 64 << 10
	retryAfterSeconds = "30"
)

// SubmitRequest is the body of POST /api/jobs. Quality accepts a name
// ("medium") or a bitrate (128 or "128k").
type SubmitRequest struct {
	Kind      string          `json:"kind"`
	Source    string          `json:"source"`
	Watermark string          `json:"watermark,omitempty"`
	Quality   json.RawMessage `json:"quality,omitempty"`
}

// CurrentResponse is the body of GET /api/jobs/current.
type CurrentResponse struct {
	State      orchestrator.State `json:"state"`
	Job        *orchestrator.Job  `json:"job,omitempty"`
	LastOutput string             `json:"lastOutput,omitempty"`
}

func (s SubmitRequest) toRequest() (orchestrator.Request, error) {
	kind, err := mediatypes.ParseOperationKind(s.Kind)
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("%w: %v", command.ErrInvalidOperationParameters, err)
	}
	quality, err := parseQuality(s.Quality)
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("%w: %v", command.ErrInvalidOperationParameters, err)
	}
	return orchestrator.Request{
		Kind:      kind,
		Source:    mediatypes.SourceRef(s.Source),
		Watermark: mediatypes.SourceRef(s.Watermark),
		Quality:   quality,
	}, nil
}

func parseQuality(raw json.RawMessage) (mediatypes.AudioQuality, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	} else {
		text = string(raw)
	}
	return mediatypes.ParseAudioQuality(text)
}

// SubmitJob starts a job.
// POST /api/jobs
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.memory != nil && h.memory.UnderPressure() {
		metrics.JobsRejectedTotal.WithLabelValues("memory_pressure").Inc()
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeJSONError(w, "Server is under memory pressure, retry later", http.StatusServiceUnavailable)
		return
	}

	var body SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req, err := body.toRequest()
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	obs := h.bus.NewObserver()
	handle, err := h.orch.Submit(r.Context(), req, obs)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	obs.Bind(handle)

	w.Header().Set("Location", "/api/jobs/"+handle.ID)
	writeJSONStatusCode(w, http.StatusAccepted, handle)
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, command.ErrInvalidOperationParameters):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, orchestrator.ErrJobAlreadyInProgress):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, orchestrator.ErrClosed):
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logging.Error("Failed to submit job: %v", err)
		writeJSONError(w, "Failed to submit job", http.StatusInternalServerError)
	}
}

// GetCurrentJob returns the orchestrator state and the in-flight or last job.
// GET /api/jobs/current
func (h *Handlers) GetCurrentJob(w http.ResponseWriter, r *http.Request) {
	resp := CurrentResponse{State: h.orch.State()}
	if job, ok := h.orch.Current(); ok {
		resp.Job = &job
	}
	if h.history != nil {
		last, err := h.history.LastOutput(r.Context())
		if err != nil {
			logging.Warn("Failed to read last output: %v", err)
		}
		resp.LastOutput = last
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, resp)
}

// CancelCurrentJob cancels whatever job is in flight.
// DELETE /api/jobs/current
func (h *Handlers) CancelCurrentJob(w http.ResponseWriter, _ *http.Request) {
	if !h.orch.CancelCurrent() {
		writeJSONError(w, "No job in progress", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelJob cancels the job with the given id if it is still in flight.
// DELETE /api/jobs/{id}
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.orch.Cancel(orchestrator.Handle{ID: id}) {
		writeJSONError(w, "Job is not in progress", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListJobs returns job history, newest first.
// GET /api/jobs?limit=N
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "Job history is not available", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.history.ListJobs(r.Context(), limit)
	if err != nil {
		logging.Error("Failed to list jobs: %v", err)
		writeJSONError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, list)
}

// GetJob returns one job from history.
// GET /api/jobs/{id}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "Job history is not available", http.StatusServiceUnavailable)
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := h.history.GetJob(r.Context(), id)
	if errors.Is(err, database.ErrJobNotFound) {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to get job %s: %v", id, err)
		writeJSONError(w, "Failed to get job", http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, rec)
}
