package storage

import (
	"testing"
	"time"

	"cookstream/internal/models"
)

func TestCreateNotificationValidation(t *testing.T) {
	store := newTestStore(t)
	recipient := createTestUser(t, store, "Chef", "chef@example.com")

	if _, err := store.CreateNotification(CreateNotificationParams{
		SenderID: "someone",
		Type:     models.NotificationLike,
	}); !IsValidation(err) {
		t.Fatalf("expected validation error for missing recipient, got %v", err)
	}

	if _, err := store.CreateNotification(CreateNotificationParams{
		RecipientID: recipient.ID,
		SenderID:    recipient.ID,
		Type:        models.NotificationLike,
	}); !IsValidation(err) {
		t.Fatalf("expected validation error for self-notification, got %v", err)
	}

	if _, err := store.CreateNotification(CreateNotificationParams{
		RecipientID: recipient.ID,
		SenderID:    "someone",
		Type:        models.NotificationType("poke"),
	}); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}

	if _, err := store.CreateNotification(CreateNotificationParams{
		RecipientID: "missing",
		SenderID:    "someone",
		Type:        models.NotificationLike,
	}); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown recipient, got %v", err)
	}
}

func TestListNotificationsAndUnreadFilter(t *testing.T) {
	store := newTestStore(t)
	recipient := createTestUser(t, store, "Chef", "chef@example.com")
	sender := createTestUser(t, store, "Fan", "fan@example.com")

	older, err := store.CreateNotification(CreateNotificationParams{
		RecipientID: recipient.ID,
		SenderID:    sender.ID,
		Type:        models.NotificationSubscribe,
	})
	if err != nil {
		t.Fatalf("CreateNotification error: %v", err)
	}
	time.Sleep(time.Millisecond)
	newer, err := store.CreateNotification(CreateNotificationParams{
		RecipientID: recipient.ID,
		SenderID:    sender.ID,
		Type:        models.NotificationLive,
		StreamID:    "stream-1",
	})
	if err != nil {
		t.Fatalf("CreateNotification error: %v", err)
	}

	all, err := store.ListNotifications(recipient.ID, false)
	if err != nil {
		t.Fatalf("ListNotifications error: %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID || all[1].ID != older.ID {
		t.Fatalf("notifications not newest-first: %+v", all)
	}

	count, err := store.CountUnreadNotifications(recipient.ID)
	if err != nil {
		t.Fatalf("CountUnreadNotifications error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	updated, err := store.MarkAllNotificationsRead(recipient.ID)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead error: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 rows marked, got %d", updated)
	}

	unread, err := store.ListNotifications(recipient.ID, true)
	if err != nil {
		t.Fatalf("ListNotifications(unread) error: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread rows, got %+v", unread)
	}

	// Marking again is a no-op.
	updated, err = store.MarkAllNotificationsRead(recipient.ID)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead error: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected 0 rows marked on repeat, got %d", updated)
	}
}

func TestNotificationsScopedToRecipient(t *testing.T) {
	store := newTestStore(t)
	a := createTestUser(t, store, "A", "a@example.com")
	b := createTestUser(t, store, "B", "b@example.com")
	sender := createTestUser(t, store, "S", "s@example.com")

	for _, recipientID := range []string{a.ID, b.ID} {
		if _, err := store.CreateNotification(CreateNotificationParams{
			RecipientID: recipientID,
			SenderID:    sender.ID,
			Type:        models.NotificationLike,
			VideoID:     "video-1",
		}); err != nil {
			t.Fatalf("CreateNotification error: %v", err)
		}
	}

	updated, err := store.MarkAllNotificationsRead(a.ID)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead error: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected only A's row marked, got %d", updated)
	}
	count, err := store.CountUnreadNotifications(b.ID)
	if err != nil {
		t.Fatalf("CountUnreadNotifications error: %v", err)
	}
	if count != 1 {
		t.Fatalf("B's unread count should be untouched, got %d", count)
	}
}
