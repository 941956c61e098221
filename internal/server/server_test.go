package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cookstream/internal/api"
	"cookstream/internal/auth"
	"cookstream/internal/models"
	"cookstream/internal/observability/metrics"
	"cookstream/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *api.Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	handler := api.NewHandler(store, auth.NewSessionManager(time.Hour))
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return srv, handler, store
}

func signupUser(t *testing.T, chain http.Handler, email string) (models.User, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"name":     "Chef",
		"email":    email,
		"password": "secret-pass",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return resp.User, resp.Token
}

func TestAuthMiddlewareGating(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{})
	chain := srv.Handler()

	// No token: the request reaches the handler, which enforces auth itself.
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("protected route without token should return 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication required") {
		t.Fatalf("handler-level auth error expected, got %s", rec.Body.String())
	}

	// Invalid token: rejected by the middleware before the handler runs.
	req = httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token should return 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid or expired session") {
		t.Fatalf("middleware auth error expected, got %s", rec.Body.String())
	}

	// Valid token: the user is attached and the request succeeds.
	_, token := signupUser(t, chain, "chef@example.com")
	req = httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated request failed: %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthAndMetricsBypassAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{})
	chain := srv.Handler()

	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s should bypass auth, got %d", path, rec.Code)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{})
	chain := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	headers := rec.Header()
	if headers.Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing frame options header: %q", headers.Get("X-Frame-Options"))
	}
	if headers.Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing content type options header")
	}
	csp := headers.Get("Content-Security-Policy")
	if !strings.Contains(csp, "connect-src 'self' ws: wss:") {
		t.Errorf("policy should allow websocket connections: %q", csp)
	}
	if headers.Get("Referrer-Policy") != "no-referrer" {
		t.Errorf("missing referrer policy header")
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{})
	chain := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("a request ID should be generated")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-supplied")
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "caller-supplied" {
		t.Fatalf("caller request ID should be echoed, got %q", got)
	}
}

func TestGlobalRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{GlobalRPS: 0.001, GlobalBurst: 2},
	})
	chain := srv.Handler()

	var rejected bool
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected = true
		}
	}
	if !rejected {
		t.Fatal("requests beyond the burst should be rejected")
	}
}

func TestLoginThrottlePerIP(t *testing.T) {
	srv, _, store := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Hour},
	})
	chain := srv.Handler()
	if _, err := store.CreateUser(storage.CreateUserParams{
		Name:     "Chef",
		Email:    "chef@example.com",
		Password: "secret-pass",
	}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	attempt := func(ip string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"email": "chef@example.com", "password": "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := attempt("198.51.100.7"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d should reach the handler, got %d", i, rec.Code)
		}
	}
	rec := attempt("198.51.100.7")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt should be throttled, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("throttled responses should advertise Retry-After")
	}

	// A different address has its own counter.
	if rec := attempt("203.0.113.9"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("other address should not be throttled, got %d", rec.Code)
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	if got := extractClientIP(req); got != "192.0.2.1" {
		t.Errorf("remote addr host expected, got %q", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := extractClientIP(req); got != "198.51.100.2" {
		t.Errorf("X-Real-IP expected, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := extractClientIP(req); got != "203.0.113.5" {
		t.Errorf("first forwarded address expected, got %q", got)
	}
}

func TestNewRequiresHandler(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected an error for a nil handler")
	}
}
