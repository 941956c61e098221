// Package models defines the domain records shared by the storage drivers
// and the HTTP API.
package models

import "time"

// NotificationType tags a notification record with the event kind that
// produced it.
type NotificationType string

const (
	NotificationComment   NotificationType = "comment"
	NotificationLike      NotificationType = "like"
	NotificationSubscribe NotificationType = "subscribe"
	NotificationLive      NotificationType = "live"
)

// StreamState describes the lifecycle position of a live stream.
type StreamState string

const (
	// StreamStateScheduled covers streams that were created (optionally
	// with a future start time) but never went live.
	StreamStateScheduled StreamState = "scheduled"
	StreamStateLive      StreamState = "live"
	StreamStateEnded     StreamState = "ended"
)

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"passwordHash,omitempty" bson:"passwordHash"`
	AvatarURL    string    `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`
	Bio          string    `json:"bio,omitempty" bson:"bio,omitempty"`
	SubscribedTo []string  `json:"subscribedTo" bson:"subscribedTo"`
	SavedVideos  []string  `json:"savedVideos" bson:"savedVideos"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsSubscribedTo reports whether the user follows the given creator.
func (u User) IsSubscribedTo(creatorID string) bool {
	for _, id := range u.SubscribedTo {
		if id == creatorID {
			return true
		}
	}
	return false
}

// HasSaved reports whether the video is in the user's saved list.
func (u User) HasSaved(videoID string) bool {
	for _, id := range u.SavedVideos {
		if id == videoID {
			return true
		}
	}
	return false
}

type Video struct {
	ID           string     `json:"id" bson:"_id"`
	Title        string     `json:"title" bson:"title"`
	Description  string     `json:"description" bson:"description"`
	VideoURL     string     `json:"videoUrl" bson:"videoUrl"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	UserID       string     `json:"userId" bson:"userId"`
	Views        int64      `json:"views" bson:"views"`
	Likes        []string   `json:"likes" bson:"likes"`
	Comments     []string   `json:"comments" bson:"comments"`
	Duration     string     `json:"duration,omitempty" bson:"duration,omitempty"`
	Category     string     `json:"category" bson:"category"`
	Tags         []string   `json:"tags" bson:"tags"`
	Ingredients  []string   `json:"ingredients,omitempty" bson:"ingredients,omitempty"`
	Instructions []string   `json:"instructions,omitempty" bson:"instructions,omitempty"`
	PrepTime     string     `json:"prepTime,omitempty" bson:"prepTime,omitempty"`
	CookTime     string     `json:"cookTime,omitempty" bson:"cookTime,omitempty"`
	Servings     int        `json:"servings,omitempty" bson:"servings,omitempty"`
	IsLive       bool       `json:"isLive" bson:"isLive"`
	LiveEndedAt  *time.Time `json:"liveEndedAt,omitempty" bson:"liveEndedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// LikedBy reports whether the given user is in the like set.
func (v Video) LikedBy(userID string) bool {
	for _, id := range v.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

type LiveStream struct {
	ID           string     `json:"id" bson:"_id"`
	Title        string     `json:"title" bson:"title"`
	Description  string     `json:"description" bson:"description"`
	UserID       string     `json:"userId" bson:"userId"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	StreamKey    string     `json:"streamKey,omitempty" bson:"streamKey"`
	Active       bool       `json:"active" bson:"active"`
	Viewers      int64      `json:"viewers" bson:"viewers"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty" bson:"scheduledFor,omitempty"`
	EndedAt      *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
	Category     string     `json:"category" bson:"category"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// State derives the lifecycle state from the active flag and end timestamp.
func (s LiveStream) State() StreamState {
	switch {
	case s.Active:
		return StreamStateLive
	case s.EndedAt != nil:
		return StreamStateEnded
	default:
		return StreamStateScheduled
	}
}

type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	Text      string    `json:"text" bson:"text"`
	UserID    string    `json:"userId" bson:"userId"`
	VideoID   string    `json:"videoId" bson:"videoId"`
	Likes     []string  `json:"likes" bson:"likes"`
	ParentID  *string   `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Replies   []string  `json:"replies" bson:"replies"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsReply reports whether the comment is attached to a parent comment.
func (c Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

type Notification struct {
	ID          string           `json:"id" bson:"_id"`
	RecipientID string           `json:"recipientId" bson:"recipientId"`
	SenderID    string           `json:"senderId" bson:"senderId"`
	Type        NotificationType `json:"type" bson:"type"`
	VideoID     string           `json:"videoId,omitempty" bson:"videoId,omitempty"`
	CommentID   string           `json:"commentId,omitempty" bson:"commentId,omitempty"`
	StreamID    string           `json:"streamId,omitempty" bson:"streamId,omitempty"`
	Read        bool             `json:"read" bson:"read"`
	CreatedAt   time.Time        `json:"createdAt" bson:"createdAt"`
}
