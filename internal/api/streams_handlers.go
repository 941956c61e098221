package api

import (
	"fmt"
	"net/http"
	"time"

	"cookstream/internal/notify"
	"cookstream/internal/storage"
)

type createStreamRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	Category     string     `json:"category"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
}

type updateStreamRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	ThumbnailURL *string    `json:"thumbnailUrl"`
	Category     *string    `json:"category"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type endStreamRequest struct {
	SaveAsVideo bool   `json:"saveAsVideo"`
	VideoURL    string `json:"videoUrl,omitempty"`
}

// Streams serves the /api/streams collection: listing and scheduling.
func (h *Handler) Streams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listStreams(w, r)
	case http.MethodPost:
		h.createStream(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}

func (h *Handler) listStreams(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	streams, err := h.Store.ListStreams(activeOnly)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	viewer, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, sanitizeStreams(streams, viewer.ID))
}

// createStream schedules a stream and announces it to the broadcaster's
// subscribers.
func (h *Handler) createStream(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req createStreamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stream, err := h.Store.CreateStream(actor.ID, storage.CreateStreamParams{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Category:     req.Category,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	h.recorder().StreamScheduled()
	if h.Notifier != nil {
		h.Notifier.Fanout(r.Context(), notify.LiveEvent{
			SenderID: actor.ID,
			StreamID: stream.ID,
		})
	}
	writeJSON(w, http.StatusCreated, stream)
}

// StreamByID serves the /api/streams/{id} subtree: viewer reads, owner-gated
// writes, and the start/end lifecycle transitions.
func (h *Handler) StreamByID(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/streams/")
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("stream id required"))
		return
	}
	streamID := segments[0]

	switch {
	case len(segments) == 1:
		switch r.Method {
		case http.MethodGet:
			h.viewStream(w, r, streamID)
		case http.MethodPatch:
			h.updateStream(w, r, streamID)
		case http.MethodDelete:
			h.deleteStream(w, r, streamID)
		default:
			writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
	case len(segments) == 2 && segments[1] == "start":
		h.startStream(w, r, streamID)
	case len(segments) == 2 && segments[1] == "end":
		h.endStream(w, r, streamID)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource"))
	}
}

// viewStream returns the stream, counting the viewer when it is live.
func (h *Handler) viewStream(w http.ResponseWriter, r *http.Request, streamID string) {
	stream, err := h.Store.ViewStream(streamID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	viewer, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, sanitizeStream(stream, viewer.ID))
}

func (h *Handler) updateStream(w http.ResponseWriter, r *http.Request, streamID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req updateStreamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stream, err := h.Store.UpdateStream(streamID, actor.ID, storage.StreamUpdate{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Category:     req.Category,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

func (h *Handler) deleteStream(w http.ResponseWriter, r *http.Request, streamID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteStream(streamID, actor.ID); err != nil {
		writeStorageError(w, err)
		return
	}
	if h.ChatHistory != nil {
		h.ChatHistory.Forget(streamID)
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// startStream transitions the stream live and announces the broadcast to
// subscribers a second time.
func (h *Handler) startStream(w http.ResponseWriter, r *http.Request, streamID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	stream, err := h.Store.StartStream(streamID, actor.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	h.recorder().StreamStarted()
	if h.Notifier != nil {
		h.Notifier.Fanout(r.Context(), notify.LiveEvent{
			SenderID: actor.ID,
			StreamID: stream.ID,
		})
	}
	writeJSON(w, http.StatusOK, stream)
}

func (h *Handler) endStream(w http.ResponseWriter, r *http.Request, streamID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req endStreamRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	stream, err := h.Store.EndStream(streamID, actor.ID, storage.EndStreamParams{
		SaveAsVideo: req.SaveAsVideo,
		VideoURL:    req.VideoURL,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	h.recorder().StreamEnded()
	if h.ChatHistory != nil {
		h.ChatHistory.Forget(streamID)
	}
	writeJSON(w, http.StatusOK, stream)
}
