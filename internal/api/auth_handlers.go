package api

import (
	"fmt"
	"net/http"
	"time"

	"cookstream/internal/models"
	"cookstream/internal/storage"
)

type signupRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      models.User `json:"user"`
	Token     string      `json:"token,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt,omitempty"`
}

// Signup registers a new account and opens a session for it.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create session: %w", err))
		return
	}
	h.setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusCreated, sessionResponse{
		User:      sanitizeUser(user),
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
	})
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create session: %w", err))
		return
	}
	h.setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:      sanitizeUser(user),
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
	})
}

// Session returns the authenticated account on GET and revokes the session on
// DELETE.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{User: sanitizeUser(user)})
	case http.MethodDelete:
		if _, ok := h.requireAuthenticatedUser(w, r); !ok {
			return
		}
		if token := ExtractToken(r); token != "" {
			if err := h.sessionManager().Revoke(token); err != nil {
				writeError(w, http.StatusInternalServerError, fmt.Errorf("revoke session: %w", err))
				return
			}
		}
		h.clearSessionCookie(w, r)
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}
