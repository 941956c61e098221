package storage

import (
	"time"

	"cookstream/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	// MaxTitleLength bounds video and stream titles.
	MaxTitleLength = 100
	// MaxVideoDescriptionLength bounds video descriptions.
	MaxVideoDescriptionLength = 5000
	// MaxStreamDescriptionLength bounds stream descriptions.
	MaxStreamDescriptionLength = 1000
	// MaxCommentLength bounds comment text.
	MaxCommentLength = 1000
	// MaxNameLength bounds user display names.
	MaxNameLength = 50
	// MaxBioLength bounds user bios.
	MaxBioLength = 250
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6

	// LiveRecordingTag marks videos created by persisting an ended stream.
	LiveRecordingTag = "live-recording"
)

// CreateUserParams captures the attributes that can be set when registering a
// user account.
type CreateUserParams struct {
	Name      string
	Email     string
	Password  string
	AvatarURL string
	Bio       string
}

// UserUpdate describes the mutable profile fields of a user. Nil pointers
// leave the current value untouched.
type UserUpdate struct {
	Name      *string
	AvatarURL *string
	Bio       *string
}

// CreateVideoParams captures the information required to publish a video.
type CreateVideoParams struct {
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Duration     string
	Category     string
	Tags         []string
	Ingredients  []string
	Instructions []string
	PrepTime     string
	CookTime     string
	Servings     int
}

// VideoUpdate describes the mutable fields of a video.
type VideoUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	Category     *string
	Tags         *[]string
	Ingredients  *[]string
	Instructions *[]string
	PrepTime     *string
	CookTime     *string
	Servings     *int
}

// VideoFilter restricts ListVideos results. Zero values match everything.
type VideoFilter struct {
	UserID   string
	Category string
	Tag      string
	// Search matches title and description using folded, accent-insensitive
	// comparison.
	Search string
	Limit  int
}

// CreateStreamParams captures the information required to schedule a live
// stream.
type CreateStreamParams struct {
	Title        string
	Description  string
	ThumbnailURL string
	Category     string
	ScheduledFor *time.Time
}

// StreamUpdate describes the non-transition fields of a live stream. Updates
// are permitted in any lifecycle state.
type StreamUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	Category     *string
	ScheduledFor *time.Time
}

// EndStreamParams controls how a stream is ended. When SaveAsVideo is set and
// VideoURL carries a playable recording, the stream is persisted as a Video.
type EndStreamParams struct {
	SaveAsVideo bool
	VideoURL    string
}

// CreateNotificationParams captures a single notification row written by the
// fan-out engine.
type CreateNotificationParams struct {
	RecipientID string
	SenderID    string
	Type        models.NotificationType
	VideoID     string
	CommentID   string
	StreamID    string
}
