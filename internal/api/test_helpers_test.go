package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"cookstream/internal/auth"
	"cookstream/internal/models"
	"cookstream/internal/notify"
	"cookstream/internal/observability/metrics"
	"cookstream/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	handler := NewHandler(store, auth.NewSessionManager(time.Hour))
	handler.Metrics = metrics.New()
	handler.Notifier = notify.NewEngine(store, nil, notify.WithRecorder(handler.Metrics))
	return handler, store
}

func createAPIUser(t *testing.T, store *storage.Storage, name, email string) models.User {
	t.Helper()
	user, err := store.CreateUser(storage.CreateUserParams{
		Name:     name,
		Email:    email,
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	return user
}

func createAPIVideo(t *testing.T, store *storage.Storage, ownerID string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(ownerID, storage.CreateVideoParams{
		Title:    "Weeknight Ramen",
		VideoURL: "https://cdn.example.com/ramen.mp4",
		Category: "dinner",
	})
	if err != nil {
		t.Fatalf("CreateVideo error: %v", err)
	}
	return video
}

func createAPIStream(t *testing.T, store *storage.Storage, ownerID string) models.LiveStream {
	t.Helper()
	stream, err := store.CreateStream(ownerID, storage.CreateStreamParams{
		Title:    "Sunday Bread Bake",
		Category: "baking",
	})
	if err != nil {
		t.Fatalf("CreateStream error: %v", err)
	}
	return stream
}

// doRequest executes the handler func directly. A non-nil user simulates the
// auth middleware having attached the session user.
func doRequest(t *testing.T, handlerFunc http.HandlerFunc, method, target string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(ContextWithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
