package storage

import (
	"context"

	"cookstream/internal/models"
)

// Repository exposes the datastore operations required by the API handlers,
// the notification fan-out engine, and the chat infrastructure. Two drivers
// implement it: the JSON-file store used for development and tests, and the
// MongoDB store used in production.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUser(id string) (models.User, bool)
	GetUserByEmail(email string) (models.User, bool)
	UpdateUser(id string, update UserUpdate) (models.User, error)

	Subscribe(userID, creatorID string) (bool, error)
	Unsubscribe(userID, creatorID string) (bool, error)
	ListSubscriberIDs(creatorID string) ([]string, error)
	CountSubscribers(creatorID string) (int, error)

	CreateVideo(ownerID string, params CreateVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	ViewVideo(id string) (models.Video, error)
	ListVideos(filter VideoFilter) ([]models.Video, error)
	ListSavedVideos(userID string) ([]models.Video, error)
	UpdateVideo(id, actorID string, update VideoUpdate) (models.Video, error)
	DeleteVideo(id, actorID string) error

	ToggleVideoLike(videoID, userID string) (bool, error)
	ToggleSavedVideo(userID, videoID string) (bool, error)

	CreateStream(ownerID string, params CreateStreamParams) (models.LiveStream, error)
	StartStream(id, actorID string) (models.LiveStream, error)
	EndStream(id, actorID string, params EndStreamParams) (models.LiveStream, error)
	GetStream(id string) (models.LiveStream, bool)
	ViewStream(id string) (models.LiveStream, error)
	ListStreams(activeOnly bool) ([]models.LiveStream, error)
	UpdateStream(id, actorID string, update StreamUpdate) (models.LiveStream, error)
	DeleteStream(id, actorID string) error

	CreateComment(authorID, videoID, text string, parentID *string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	ListCommentThreads(videoID string) ([]models.Comment, error)
	ListReplies(commentID string) ([]models.Comment, error)
	ToggleCommentLike(commentID, userID string) (bool, error)

	CreateNotification(params CreateNotificationParams) (models.Notification, error)
	ListNotifications(recipientID string, unreadOnly bool) ([]models.Notification, error)
	MarkAllNotificationsRead(recipientID string) (int, error)
	CountUnreadNotifications(recipientID string) (int, error)
}

var _ Repository = (*Storage)(nil)
var _ Repository = (*MongoRepository)(nil)
