package api

import (
	"fmt"
	"net/http"

	"cookstream/internal/storage"
)

// CommentByID serves the /api/comments/{id} subtree: single-comment reads,
// the like toggle, and the reply listing.
func (h *Handler) CommentByID(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/comments/")
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("comment id required"))
		return
	}
	commentID := segments[0]

	switch {
	case len(segments) == 1:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
			return
		}
		comment, ok := h.Store.GetComment(commentID)
		if !ok {
			writeStorageError(w, storage.NotFoundError{Entity: "comment", ID: commentID})
			return
		}
		writeJSON(w, http.StatusOK, h.commentViewFor(comment, true))
	case len(segments) == 2 && segments[1] == "like":
		h.toggleCommentLike(w, r, commentID)
	case len(segments) == 2 && segments[1] == "replies":
		h.listReplies(w, r, commentID)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource"))
	}
}

func (h *Handler) toggleCommentLike(w http.ResponseWriter, r *http.Request, commentID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	liked, err := h.Store.ToggleCommentLike(commentID, actor.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *Handler) listReplies(w http.ResponseWriter, r *http.Request, commentID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	replies, err := h.Store.ListReplies(commentID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	views := make([]commentView, 0, len(replies))
	for _, reply := range replies {
		views = append(views, h.commentViewFor(reply, false))
	}
	writeJSON(w, http.StatusOK, views)
}
