package api

import (
	"fmt"
	"net/http"
	"strconv"

	"cookstream/internal/notify"
	"cookstream/internal/storage"
)

type createVideoRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	VideoURL     string   `json:"videoUrl"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	PrepTime     string   `json:"prepTime,omitempty"`
	CookTime     string   `json:"cookTime,omitempty"`
	Servings     int      `json:"servings,omitempty"`
}

type updateVideoRequest struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	Category     *string   `json:"category"`
	Tags         *[]string `json:"tags"`
	Ingredients  *[]string `json:"ingredients"`
	Instructions *[]string `json:"instructions"`
	PrepTime     *string   `json:"prepTime"`
	CookTime     *string   `json:"cookTime"`
	Servings     *int      `json:"servings"`
}

type createCommentRequest struct {
	Text     string  `json:"text"`
	ParentID *string `json:"parentId,omitempty"`
}

// Videos serves the /api/videos collection: filtered listing and publishing.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVideos(w, r)
	case http.MethodPost:
		h.createVideo(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.VideoFilter{
		UserID:   query.Get("userId"),
		Category: query.Get("category"),
		Tag:      query.Get("tag"),
		Search:   query.Get("q"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}
	videos, err := h.Store.ListVideos(filter)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req createVideoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	video, err := h.Store.CreateVideo(actor.ID, storage.CreateVideoParams{
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     req.VideoURL,
		ThumbnailURL: req.ThumbnailURL,
		Duration:     req.Duration,
		Category:     req.Category,
		Tags:         req.Tags,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

// VideoByID serves the /api/videos/{id} subtree: playback reads, owner-gated
// writes, engagement toggles, and the comment thread collection.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/videos/")
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("video id required"))
		return
	}
	videoID := segments[0]

	switch {
	case len(segments) == 1:
		switch r.Method {
		case http.MethodGet:
			h.viewVideo(w, videoID)
		case http.MethodPatch:
			h.updateVideo(w, r, videoID)
		case http.MethodDelete:
			h.deleteVideo(w, r, videoID)
		default:
			writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
	case len(segments) == 2 && segments[1] == "like":
		h.toggleVideoLike(w, r, videoID)
	case len(segments) == 2 && segments[1] == "save":
		h.toggleSavedVideo(w, r, videoID)
	case len(segments) == 2 && segments[1] == "comments":
		h.videoComments(w, r, videoID)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource"))
	}
}

// viewVideo returns the video and counts the view.
func (h *Handler) viewVideo(w http.ResponseWriter, videoID string) {
	video, err := h.Store.ViewVideo(videoID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req updateVideoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	video, err := h.Store.UpdateVideo(videoID, actor.ID, storage.VideoUpdate{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		Category:     req.Category,
		Tags:         req.Tags,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteVideo(videoID, actor.ID); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) toggleVideoLike(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	liked, err := h.Store.ToggleVideoLike(videoID, actor.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	// Only the off-to-on transition notifies the owner, so repeated toggles
	// cannot spam them.
	if liked && h.Notifier != nil {
		h.Notifier.Fanout(r.Context(), notify.LikeEvent{
			SenderID: actor.ID,
			VideoID:  videoID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *Handler) toggleSavedVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	saved, err := h.Store.ToggleSavedVideo(actor.ID, videoID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}

func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		h.listCommentThreads(w, videoID)
	case http.MethodPost:
		h.createComment(w, r, videoID)
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}

func (h *Handler) listCommentThreads(w http.ResponseWriter, videoID string) {
	if _, ok := h.Store.GetVideo(videoID); !ok {
		writeStorageError(w, storage.NotFoundError{Entity: "video", ID: videoID})
		return
	}
	threads, err := h.Store.ListCommentThreads(videoID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	views := make([]commentView, 0, len(threads))
	for _, comment := range threads {
		views = append(views, h.commentViewFor(comment, true))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request, videoID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	comment, err := h.Store.CreateComment(actor.ID, videoID, req.Text, req.ParentID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if h.Notifier != nil {
		h.Notifier.Fanout(r.Context(), notify.CommentEvent{
			SenderID:  actor.ID,
			VideoID:   videoID,
			CommentID: comment.ID,
		})
	}
	writeJSON(w, http.StatusCreated, h.commentViewFor(comment, false))
}
