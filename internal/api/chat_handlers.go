package api

import (
	"fmt"
	"net/http"
)

// ChatWebsocket upgrades the request to a WebSocket session for the
// authenticated user.
func (h *Handler) ChatWebsocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if h.ChatGateway == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("chat is not enabled"))
		return
	}
	h.ChatGateway.HandleConnection(w, r, user)
}

// ChatHistoryByStream returns the buffered recent messages for a stream so
// late joiners can catch up. Best-effort: only messages observed while the
// consumer ran are available.
func (h *Handler) ChatHistoryByStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	streamID := r.URL.Query().Get("streamId")
	if streamID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("streamId is required"))
		return
	}
	if h.ChatHistory == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("chat history is not enabled"))
		return
	}
	writeJSON(w, http.StatusOK, h.ChatHistory.Messages(streamID))
}
