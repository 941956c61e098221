package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hashPassword error: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2$sha256$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}
	if err := verifyPassword(hash, "correct horse battery"); err != nil {
		t.Fatalf("verifyPassword error: %v", err)
	}
	if err := verifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	first, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("hashPassword error: %v", err)
	}
	second, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("hashPassword error: %v", err)
	}
	if first == second {
		t.Fatal("hashes should differ because of random salts")
	}
}
