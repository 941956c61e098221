package storage

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cookstream/internal/models"
)

func (m *MongoRepository) CreateNotification(params CreateNotificationParams) (models.Notification, error) {
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

	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": params.RecipientID}); err != nil {
		return models.Notification{}, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
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
	if _, err := m.notifications.InsertOne(ctx, notification); err != nil {
		return models.Notification{}, PersistenceError{Op: "insert notification", Err: err}
	}
	return notification, nil
}

func (m *MongoRepository) ListNotifications(recipientID string, unreadOnly bool) ([]models.Notification, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": recipientID}); err != nil {
		return nil, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return nil, NotFoundError{Entity: "user", ID: recipientID}
	}

	query := bson.M{"recipientId": recipientID}
	if unreadOnly {
		query["read"] = false
	}

	cursor, err := m.notifications.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, PersistenceError{Op: "find notifications", Err: err}
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, PersistenceError{Op: "decode notifications", Err: err}
	}
	return notifications, nil
}

func (m *MongoRepository) MarkAllNotificationsRead(recipientID string) (int, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": recipientID}); err != nil {
		return 0, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return 0, NotFoundError{Entity: "user", ID: recipientID}
	}

	result, err := m.notifications.UpdateMany(ctx,
		bson.M{"recipientId": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, PersistenceError{Op: "mark notifications read", Err: err}
	}
	return int(result.ModifiedCount), nil
}

func (m *MongoRepository) CountUnreadNotifications(recipientID string) (int, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": recipientID}); err != nil {
		return 0, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return 0, NotFoundError{Entity: "user", ID: recipientID}
	}

	count, err := m.notifications.CountDocuments(ctx, bson.M{"recipientId": recipientID, "read": false})
	if err != nil {
		return 0, PersistenceError{Op: "count notifications", Err: err}
	}
	return int(count), nil
}
