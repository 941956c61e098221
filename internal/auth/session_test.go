package auth

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndValidateRoundTrip(t *testing.T) {
	manager := NewSessionManager(time.Hour)

	token, expiresAt, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry should be in the future: %v", expiresAt)
	}

	userID, _, ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if !ok || userID != "user-1" {
		t.Fatalf("expected valid session for user-1, got ok=%v user=%q", ok, userID)
	}
}

func TestCreateRequiresUserID(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, err := manager.Create(""); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestValidateUnknownTokenFails(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, ok, err := manager.Validate("nope"); ok || err != nil {
		t.Fatalf("unknown token should not validate: ok=%v err=%v", ok, err)
	}
	if _, _, ok, err := manager.Validate(""); ok || err != nil {
		t.Fatalf("empty token should not validate: ok=%v err=%v", ok, err)
	}
}

func TestValidateDeletesExpiredSession(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if err := store.Save(token, "user-1", past, past); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, _, ok, err := manager.Validate(token); ok || err != nil {
		t.Fatalf("expired session should not validate: ok=%v err=%v", ok, err)
	}
	if _, found, _ := store.Get(token); found {
		t.Fatal("expired session should be removed on validation")
	}
}

func TestValidateRefreshesIdleExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(24*time.Hour, WithStore(store), WithIdleTimeout(time.Hour))

	token, firstExpiry, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// Age the session so the refresh produces a later expiry.
	record, _, _ := store.Get(token)
	aged := record.ExpiresAt.Add(-10 * time.Minute)
	if err := store.Save(token, record.UserID, aged, record.AbsoluteExpiresAt); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	_, refreshed, ok, err := manager.Validate(token)
	if err != nil || !ok {
		t.Fatalf("Validate error: ok=%v err=%v", ok, err)
	}
	if !refreshed.After(aged) {
		t.Fatalf("idle expiry not refreshed: %v vs %v", refreshed, aged)
	}
	if refreshed.Before(firstExpiry.Add(-time.Minute)) {
		t.Fatalf("refreshed expiry regressed: %v", refreshed)
	}
}

func TestIdleRefreshCappedAtAbsoluteTTL(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store), WithIdleTimeout(30*time.Minute))

	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// Move the absolute deadline to just ahead of now so the refresh must clamp.
	record, _, _ := store.Get(token)
	nearAbsolute := time.Now().Add(5 * time.Minute)
	if err := store.Save(token, record.UserID, time.Now().Add(time.Minute), nearAbsolute); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	_, expiresAt, ok, err := manager.Validate(token)
	if err != nil || !ok {
		t.Fatalf("Validate error: ok=%v err=%v", ok, err)
	}
	if expiresAt.After(nearAbsolute.Add(time.Second)) {
		t.Fatalf("idle refresh exceeded the absolute deadline: %v vs %v", expiresAt, nearAbsolute)
	}
}

func TestRevokeDeletesSession(t *testing.T) {
	manager := NewSessionManager(time.Hour)

	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := manager.Revoke(token); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if _, _, ok, _ := manager.Validate(token); ok {
		t.Fatal("revoked session should not validate")
	}
	if err := manager.Revoke(""); err != nil {
		t.Fatalf("revoking an empty token should be a no-op: %v", err)
	}
}

func TestPurgeExpiredRemovesOnlyStaleSessions(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	live, _, err := manager.Create("user-live")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	stale, _, err := manager.Create("user-stale")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if err := store.Save(stale, "user-stale", past, past); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if err := manager.PurgeExpired(); err != nil {
		t.Fatalf("PurgeExpired error: %v", err)
	}
	if _, found, _ := store.Get(stale); found {
		t.Fatal("stale session should be purged")
	}
	if _, found, _ := store.Get(live); !found {
		t.Fatal("live session should survive the purge")
	}
}

func TestTokensAreUniquePerCreate(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		token, _, err := manager.Create("user-1")
		if err != nil {
			t.Fatalf("Create error: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued: %q", token)
		}
		seen[token] = true
	}
}
