package handlers

import (
	"net/http"
	"strconv"

	"media-converter/internal/events"
)

// EventsResponse is the body of GET /api/events.
type EventsResponse struct {
	Events  []events.Event `json:"events"`
	LastSeq int64          `json:"lastSeq"`
}

// GetEvents returns events published after the given sequence number.
// Clients poll with since set to the lastSeq of the previous response.
// GET /api/events?since=N
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			writeJSONError(w, "Invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}

	// A cursor ahead of the bus belongs to a previous process; replay everything.
	lastSeq := h.bus.LastSeq()
	if since > lastSeq {
		since = 0
	}

	resp := EventsResponse{Events: h.bus.Since(since), LastSeq: lastSeq}
	if n := len(resp.Events); n > 0 {
		resp.LastSeq = max(resp.LastSeq, resp.Events[n-1].Seq)
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, resp)
}
