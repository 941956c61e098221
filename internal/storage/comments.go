package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cookstream/internal/models"
)

// CreateComment posts a comment on a video. With a parentID it becomes a
// reply; replies cannot be nested further.
func (s *Storage) CreateComment(authorID, videoID, text string, parentID *string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[authorID]; !ok {
		return models.Comment{}, NotFoundError{Entity: "user", ID: authorID}
	}
	video, ok := s.data.Videos[videoID]
	if !ok {
		return models.Comment{}, NotFoundError{Entity: "video", ID: videoID}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, ValidationError{Field: "text", Reason: "is required"}
	}
	if len(text) > MaxCommentLength {
		return models.Comment{}, ValidationError{Field: "text", Reason: fmt.Sprintf("exceeds %d characters", MaxCommentLength)}
	}

	var parent models.Comment
	hasParent := parentID != nil && *parentID != ""
	if hasParent {
		parent, ok = s.data.Comments[*parentID]
		if !ok {
			return models.Comment{}, NotFoundError{Entity: "comment", ID: *parentID}
		}
		if parent.VideoID != videoID {
			return models.Comment{}, ValidationError{Field: "parentId", Reason: "belongs to a different video"}
		}
		if parent.IsReply() {
			return models.Comment{}, ValidationError{Field: "parentId", Reason: "replies cannot be nested"}
		}
	}

	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        id,
		Text:      text,
		UserID:    authorID,
		VideoID:   videoID,
		Likes:     []string{},
		Replies:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if hasParent {
		pid := *parentID
		comment.ParentID = &pid
	}

	previousVideo := video
	s.data.Comments[id] = comment
	if hasParent {
		previousParent := parent
		parent.Replies = append(append([]string(nil), parent.Replies...), id)
		parent.UpdatedAt = now
		s.data.Comments[parent.ID] = parent
		video.Comments = append(append([]string(nil), video.Comments...), id)
		video.UpdatedAt = now
		s.data.Videos[videoID] = video
		if err := s.persist(); err != nil {
			delete(s.data.Comments, id)
			s.data.Comments[parent.ID] = previousParent
			s.data.Videos[videoID] = previousVideo
			return models.Comment{}, err
		}
		return comment, nil
	}

	video.Comments = append(append([]string(nil), video.Comments...), id)
	video.UpdatedAt = now
	s.data.Videos[videoID] = video
	if err := s.persist(); err != nil {
		delete(s.data.Comments, id)
		s.data.Videos[videoID] = previousVideo
		return models.Comment{}, err
	}
	return comment, nil
}

func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

// ListCommentThreads returns the video's top-level comments newest-first.
// Replies are fetched separately via ListReplies.
func (s *Storage) ListCommentThreads(videoID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return nil, NotFoundError{Entity: "video", ID: videoID}
	}

	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID && !comment.IsReply() {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

// ListReplies returns a comment's replies in the order they were posted.
func (s *Storage) ListReplies(commentID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, ok := s.data.Comments[commentID]
	if !ok {
		return nil, NotFoundError{Entity: "comment", ID: commentID}
	}

	replies := make([]models.Comment, 0, len(parent.Replies))
	for _, replyID := range parent.Replies {
		if reply, ok := s.data.Comments[replyID]; ok {
			replies = append(replies, reply)
		}
	}
	return replies, nil
}

// ToggleCommentLike flips the actor's like on a comment. It reports true when
// the like is now present.
func (s *Storage) ToggleCommentLike(commentID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.data.Comments[commentID]
	if !ok {
		return false, NotFoundError{Entity: "comment", ID: commentID}
	}
	if _, ok := s.data.Users[userID]; !ok {
		return false, NotFoundError{Entity: "user", ID: userID}
	}

	previous := comment
	liked := false
	found := false
	filtered := make([]string, 0, len(comment.Likes))
	for _, id := range comment.Likes {
		if id == userID {
			found = true
			continue
		}
		filtered = append(filtered, id)
	}
	if found {
		comment.Likes = filtered
	} else {
		comment.Likes = append(append([]string(nil), comment.Likes...), userID)
		liked = true
	}
	comment.UpdatedAt = time.Now().UTC()

	s.data.Comments[commentID] = comment
	if err := s.persist(); err != nil {
		s.data.Comments[commentID] = previous
		return false, err
	}
	return liked, nil
}
