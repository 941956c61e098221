// Package api implements the HTTP handlers for the recipe video platform:
// accounts and sessions, videos and comment threads, live-stream lifecycle,
// notifications, and the chat WebSocket endpoint.
package api

import (
	"net/http"
	"strings"
	"time"

	"cookstream/internal/auth"
	"cookstream/internal/chat"
	"cookstream/internal/notify"
	"cookstream/internal/observability/metrics"
	"cookstream/internal/storage"
)

type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	Notifier            *notify.Engine
	ChatGateway         *chat.Gateway
	ChatHistory         *chat.History
	Metrics             *metrics.Recorder
	SessionCookiePolicy SessionCookiePolicy
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return &Handler{Store: store, Sessions: sessions}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return h.Sessions
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

// Health reports liveness of the API and its backing stores.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if err := h.sessionManager().Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["sessions"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// ExtractToken pulls the session token from the Authorization header or the
// session cookie.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// pathSegments splits the request path below the given prefix into its
// non-empty segments.
func pathSegments(r *http.Request, prefix string) []string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
