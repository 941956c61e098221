package storage

import (
	"sort"
	"time"

	"cookstream/internal/models"
)

// CreateNotification writes a single notification row. Recipients and
// deduplication are the fan-out engine's responsibility.
func (s *Storage) CreateNotification(params CreateNotificationParams) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params.RecipientID == "" {
		return models.Notification{}, ValidationError{Field: "recipientId", Reason: "is required"}
	}
	if params.RecipientID == params.SenderID {
		return models.Notification{}, ValidationError{Field: "recipientId", Reason: "cannot equal senderId"}
	}
	switch params.Type {
	case models.NotificationComment, models.NotificationLike, models.NotificationSubscribe, models.NotificationLive:
	default:
		return models.Notification{}, ValidationError{Field: "type", Reason: "is not a known notification type"}
	}
	if _, ok := s.data.Users[params.RecipientID]; !ok {
		return models.Notification{}, NotFoundError{Entity: "user", ID: params.RecipientID}
	}

	id, err := generateID()
	if err != nil {
		return models.Notification{}, err
	}

	notification := models.Notification{
		ID:          id,
		RecipientID: params.RecipientID,
		SenderID:    params.SenderID,
		Type:        params.Type,
		VideoID:     params.VideoID,
		CommentID:   params.CommentID,
		StreamID:    params.StreamID,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}

	s.data.Notifications[id] = notification
	if err := s.persist(); err != nil {
		delete(s.data.Notifications, id)
		return models.Notification{}, err
	}
	return notification, nil
}

// ListNotifications returns the recipient's notifications newest-first.
func (s *Storage) ListNotifications(recipientID string, unreadOnly bool) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[recipientID]; !ok {
		return nil, NotFoundError{Entity: "user", ID: recipientID}
	}

	notifications := make([]models.Notification, 0)
	for _, notification := range s.data.Notifications {
		if notification.RecipientID != recipientID {
			continue
		}
		if unreadOnly && notification.Read {
			continue
		}
		notifications = append(notifications, notification)
	}
	sort.Slice(notifications, func(i, j int) bool {
		if notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].ID < notifications[j].ID
		}
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// MarkAllNotificationsRead flips every unread notification for the recipient
// and returns how many were updated.
func (s *Storage) MarkAllNotificationsRead(recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[recipientID]; !ok {
		return 0, NotFoundError{Entity: "user", ID: recipientID}
	}

	touched := make(map[string]models.Notification)
	for id, notification := range s.data.Notifications {
		if notification.RecipientID != recipientID || notification.Read {
			continue
		}
		touched[id] = notification
		notification.Read = true
		s.data.Notifications[id] = notification
	}
	if len(touched) == 0 {
		return 0, nil
	}

	if err := s.persist(); err != nil {
		for id, notification := range touched {
			s.data.Notifications[id] = notification
		}
		return 0, err
	}
	return len(touched), nil
}

func (s *Storage) CountUnreadNotifications(recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[recipientID]; !ok {
		return 0, NotFoundError{Entity: "user", ID: recipientID}
	}

	count := 0
	for _, notification := range s.data.Notifications {
		if notification.RecipientID == recipientID && !notification.Read {
			count++
		}
	}
	return count, nil
}
