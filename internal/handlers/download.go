package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"media-converter/internal/database"
	"media-converter/internal/logging"
	"media-converter/internal/orchestrator"
	"media-converter/internal/streaming"
)

// GetJobOutput streams the output file of a succeeded job.
// GET /api/jobs/{id}/output
func (h *Handlers) GetJobOutput(w http.ResponseWriter, r *http.Request) {
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
	if rec.State != string(orchestrator.StateSucceeded) {
		writeJSONError(w, "Job has no output", http.StatusConflict)
		return
	}

	if err := streaming.ServeFile(w, r, rec.OutputPath, streaming.DefaultConfig()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "Output file no longer exists", http.StatusGone)
			return
		}
		logging.Error("Failed to serve output of job %s: %v", id, err)
		writeJSONError(w, "Failed to read output file", http.StatusInternalServerError)
	}
}
