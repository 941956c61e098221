package api

import (
	"net/http"
)

// Notifications serves /api/notifications: GET lists the viewer's inbox with
// sender and video joins, PUT marks everything read.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		unreadOnly := r.URL.Query().Get("unread") == "true"
		notifications, err := h.Store.ListNotifications(actor.ID, unreadOnly)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		unreadCount, err := h.Store.CountUnreadNotifications(actor.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		views := make([]notificationView, 0, len(notifications))
		for _, notification := range notifications {
			views = append(views, h.notificationViewFor(notification))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"notifications": views,
			"unreadCount":   unreadCount,
		})
	case http.MethodPut:
		updated, err := h.Store.MarkAllNotificationsRead(actor.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}
