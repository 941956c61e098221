package api

import (
	"cookstream/internal/models"
)

// userSummary is the public author projection embedded in joined responses.
type userSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// userProfile is the public view of an account, with the subscriber count
// derived from the subscription relation.
type userProfile struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	Bio             string `json:"bio,omitempty"`
	CreatedAt       string `json:"createdAt"`
	SubscriberCount int    `json:"subscriberCount"`
	// Subscribed reports whether the requesting viewer follows this
	// creator. Absent for anonymous requests.
	Subscribed *bool `json:"subscribed,omitempty"`
}

// commentView joins a comment with its author summary. Replies are included
// one level deep on thread listings.
type commentView struct {
	models.Comment
	Author  *userSummary  `json:"author,omitempty"`
	Replies []commentView `json:"replies"`
}

// notificationView joins a notification with its sender summary and, when the
// notification references a video, the video title and thumbnail.
type notificationView struct {
	models.Notification
	Sender         *userSummary `json:"sender,omitempty"`
	VideoTitle     string       `json:"videoTitle,omitempty"`
	VideoThumbnail string       `json:"videoThumbnail,omitempty"`
}

func (h *Handler) summaryFor(userID string) *userSummary {
	user, ok := h.Store.GetUser(userID)
	if !ok {
		return nil
	}
	return &userSummary{ID: user.ID, Name: user.Name, AvatarURL: user.AvatarURL}
}

// sanitizeUser strips credential material before a user record leaves the API.
func sanitizeUser(user models.User) models.User {
	user.PasswordHash = ""
	return user
}

// sanitizeStream hides the stream key from everyone but the owner.
func sanitizeStream(stream models.LiveStream, viewerID string) models.LiveStream {
	if stream.UserID != viewerID {
		stream.StreamKey = ""
	}
	return stream
}

func sanitizeStreams(streams []models.LiveStream, viewerID string) []models.LiveStream {
	out := make([]models.LiveStream, len(streams))
	for i, stream := range streams {
		out[i] = sanitizeStream(stream, viewerID)
	}
	return out
}

func (h *Handler) commentViewFor(comment models.Comment, withReplies bool) commentView {
	view := commentView{
		Comment: comment,
		Author:  h.summaryFor(comment.UserID),
		Replies: []commentView{},
	}
	if withReplies {
		replies, err := h.Store.ListReplies(comment.ID)
		if err == nil {
			for _, reply := range replies {
				view.Replies = append(view.Replies, h.commentViewFor(reply, false))
			}
		}
	}
	return view
}

func (h *Handler) notificationViewFor(notification models.Notification) notificationView {
	view := notificationView{
		Notification: notification,
		Sender:       h.summaryFor(notification.SenderID),
	}
	if notification.VideoID != "" {
		if video, ok := h.Store.GetVideo(notification.VideoID); ok {
			view.VideoTitle = video.Title
			view.VideoThumbnail = video.ThumbnailURL
		}
	}
	return view
}
