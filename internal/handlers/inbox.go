package handlers

import (
	"net/http"

	"media-converter/internal/inbox"
)

// InboxResponse describes the watch folder. Status fields are omitted when
// the inbox is disabled.
type InboxResponse struct {
	Enabled bool `json:"enabled"`
	*inbox.Status
}

// GetInbox returns the watched directory and its queued files.
func (h *Handlers) GetInbox(w http.ResponseWriter, r *http.Request) {
	if h.inbox == nil {
		writeJSON(w, InboxResponse{})
		return
	}
	status := h.inbox.Status()
	if status.Queued == nil {
		status.Queued = []string{}
	}
	writeJSON(w, InboxResponse{Enabled: true, Status: &status})
}
