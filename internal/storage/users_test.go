package storage

import (
	"errors"
	"testing"
)

func TestCreateUserValidation(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name   string
		params CreateUserParams
	}{
		{"missing name", CreateUserParams{Email: "a@example.com", Password: "secret-pass"}},
		{"missing email", CreateUserParams{Name: "Ada", Password: "secret-pass"}},
		{"malformed email", CreateUserParams{Name: "Ada", Email: "not-an-email", Password: "secret-pass"}},
		{"short password", CreateUserParams{Name: "Ada", Email: "a@example.com", Password: "abc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateUser(tc.params); !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateUserNormalizesAndRejectsDuplicateEmail(t *testing.T) {
	store := newTestStore(t)

	user, err := store.CreateUser(CreateUserParams{
		Name:     "Ada",
		Email:    "  Ada@Example.COM ",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret-pass" {
		t.Fatalf("password stored without hashing: %q", user.PasswordHash)
	}

	if _, err := store.CreateUser(CreateUserParams{
		Name:     "Imposter",
		Email:    "ADA@example.com",
		Password: "secret-pass",
	}); !IsValidation(err) {
		t.Fatalf("expected validation error for duplicate email, got %v", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	store := newTestStore(t)
	createTestUser(t, store, "Ada", "ada@example.com")

	user, err := store.AuthenticateUser("Ada@Example.com", "secret-pass")
	if err != nil {
		t.Fatalf("AuthenticateUser error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := store.AuthenticateUser("ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.AuthenticateUser("nobody@example.com", "secret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUpdateUserProfileFields(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "Ada", "ada@example.com")

	name := "Ada L."
	bio := "Sourdough enthusiast"
	updated, err := store.UpdateUser(user.ID, UserUpdate{Name: &name, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateUser error: %v", err)
	}
	if updated.Name != name || updated.Bio != bio {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.Email != user.Email {
		t.Fatalf("email changed unexpectedly: %q", updated.Email)
	}

	empty := ""
	if _, err := store.UpdateUser(user.ID, UserUpdate{Name: &empty}); !IsValidation(err) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}
	if _, err := store.UpdateUser("missing", UserUpdate{Name: &name}); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubscribeIsIdempotentAndDerivesCounts(t *testing.T) {
	store := newTestStore(t)
	creator := createTestUser(t, store, "Chef", "chef@example.com")
	fan := createTestUser(t, store, "Fan", "fan@example.com")

	created, err := store.Subscribe(fan.ID, creator.ID)
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if !created {
		t.Fatal("first subscribe should report a new relation")
	}

	created, err = store.Subscribe(fan.ID, creator.ID)
	if err != nil {
		t.Fatalf("repeat Subscribe error: %v", err)
	}
	if created {
		t.Fatal("repeat subscribe should be a no-op")
	}

	count, err := store.CountSubscribers(creator.ID)
	if err != nil {
		t.Fatalf("CountSubscribers error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 subscriber, got %d", count)
	}

	removed, err := store.Unsubscribe(fan.ID, creator.ID)
	if err != nil {
		t.Fatalf("Unsubscribe error: %v", err)
	}
	if !removed {
		t.Fatal("unsubscribe should report removal")
	}
	count, err = store.CountSubscribers(creator.ID)
	if err != nil {
		t.Fatalf("CountSubscribers error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe, got %d", count)
	}
}

func TestSubscribeRejectsSelfAndUnknownUsers(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "Chef", "chef@example.com")

	if _, err := store.Subscribe(user.ID, user.ID); !IsValidation(err) {
		t.Fatalf("expected validation error for self-subscription, got %v", err)
	}
	if _, err := store.Subscribe(user.ID, "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown creator, got %v", err)
	}
	if _, err := store.Subscribe("missing", user.ID); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown subscriber, got %v", err)
	}
}

func TestListSubscriberIDs(t *testing.T) {
	store := newTestStore(t)
	creator := createTestUser(t, store, "Chef", "chef@example.com")
	fanA := createTestUser(t, store, "A", "a@example.com")
	fanB := createTestUser(t, store, "B", "b@example.com")

	for _, fan := range []string{fanA.ID, fanB.ID} {
		if _, err := store.Subscribe(fan, creator.ID); err != nil {
			t.Fatalf("Subscribe error: %v", err)
		}
	}

	ids, err := store.ListSubscriberIDs(creator.ID)
	if err != nil {
		t.Fatalf("ListSubscriberIDs error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 subscriber IDs, got %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[fanA.ID] || !seen[fanB.ID] {
		t.Fatalf("subscriber set incomplete: %v", ids)
	}
}
