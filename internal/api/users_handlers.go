package api

import (
	"fmt"
	"net/http"
	"time"

	"cookstream/internal/notify"
	"cookstream/internal/storage"
)

type updateUserRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

// UserByID serves the /api/users/{id} subtree: public profiles, profile
// updates, the subscribe relation, and the viewer's saved list.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/users/")
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("user id required"))
		return
	}
	userID := segments[0]

	switch {
	case len(segments) == 1:
		switch r.Method {
		case http.MethodGet:
			h.getUserProfile(w, r, userID)
		case http.MethodPatch:
			h.updateUser(w, r, userID)
		default:
			writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
	case len(segments) == 2 && segments[1] == "subscribe":
		h.handleSubscription(w, r, userID)
	case len(segments) == 2 && segments[1] == "saved":
		h.listSavedVideos(w, r, userID)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource"))
	}
}

func (h *Handler) getUserProfile(w http.ResponseWriter, r *http.Request, userID string) {
	user, ok := h.Store.GetUser(userID)
	if !ok {
		writeStorageError(w, storage.NotFoundError{Entity: "user", ID: userID})
		return
	}
	count, err := h.Store.CountSubscribers(userID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	profile := userProfile{
		ID:              user.ID,
		Name:            user.Name,
		AvatarURL:       user.AvatarURL,
		Bio:             user.Bio,
		CreatedAt:       user.CreatedAt.UTC().Format(time.RFC3339),
		SubscriberCount: count,
	}
	if viewer, ok := UserFromContext(r.Context()); ok {
		subscribed := viewer.IsSubscribedTo(userID)
		profile.Subscribed = &subscribed
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, userID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if actor.ID != userID {
		writeError(w, http.StatusForbidden, fmt.Errorf("cannot modify another user's profile"))
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.UpdateUser(userID, storage.UserUpdate{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sanitizeUser(user))
}

func (h *Handler) handleSubscription(w http.ResponseWriter, r *http.Request, creatorID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		created, err := h.Store.Subscribe(actor.ID, creatorID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		if created && h.Notifier != nil {
			h.Notifier.Fanout(r.Context(), notify.SubscribeEvent{
				SenderID:    actor.ID,
				RecipientID: creatorID,
			})
		}
		writeJSON(w, http.StatusOK, map[string]bool{"subscribed": true, "created": created})
	case http.MethodDelete:
		removed, err := h.Store.Unsubscribe(actor.ID, creatorID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"subscribed": false, "removed": removed})
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}

func (h *Handler) listSavedVideos(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if actor.ID != userID {
		writeError(w, http.StatusForbidden, fmt.Errorf("saved videos are private"))
		return
	}
	videos, err := h.Store.ListSavedVideos(userID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}
