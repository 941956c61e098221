package api

import (
	"errors"
	"net/http"

	"cookstream/internal/storage"
)

var errMethodNotAllowed = errors.New("method not allowed")

// writeStorageError maps the typed storage errors onto HTTP status codes.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case storage.IsValidation(err):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case storage.IsAuthorization(err):
		writeError(w, http.StatusForbidden, err)
	case storage.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
	case storage.IsInvalidState(err):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
