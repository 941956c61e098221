package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cookstream/internal/models"
)

func validateVideoParams(params CreateVideoParams) error {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return ValidationError{Field: "title", Reason: "is required"}
	}
	if len(title) > MaxTitleLength {
		return ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
	}
	if len(params.Description) > MaxVideoDescriptionLength {
		return ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxVideoDescriptionLength)}
	}
	if strings.TrimSpace(params.VideoURL) == "" {
		return ValidationError{Field: "videoUrl", Reason: "is required"}
	}
	if params.Servings < 0 {
		return ValidationError{Field: "servings", Reason: "must not be negative"}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

func (s *Storage) CreateVideo(ownerID string, params CreateVideoParams) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Video{}, NotFoundError{Entity: "user", ID: ownerID}
	}
	if err := validateVideoParams(params); err != nil {
		return models.Video{}, err
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:           id,
		Title:        strings.TrimSpace(params.Title),
		Description:  strings.TrimSpace(params.Description),
		VideoURL:     strings.TrimSpace(params.VideoURL),
		ThumbnailURL: strings.TrimSpace(params.ThumbnailURL),
		UserID:       ownerID,
		Likes:        []string{},
		Comments:     []string{},
		Duration:     strings.TrimSpace(params.Duration),
		Category:     strings.TrimSpace(params.Category),
		Tags:         normalizeTags(params.Tags),
		Ingredients:  append([]string(nil), params.Ingredients...),
		Instructions: append([]string(nil), params.Instructions...),
		PrepTime:     strings.TrimSpace(params.PrepTime),
		CookTime:     strings.TrimSpace(params.CookTime),
		Servings:     params.Servings,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.data.Videos[id] = video
	if err := s.persist(); err != nil {
		delete(s.data.Videos, id)
		return models.Video{}, err
	}

	return video, nil
}

func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

// ViewVideo records a single view and returns the updated video.
func (s *Storage) ViewVideo(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, NotFoundError{Entity: "video", ID: id}
	}

	previous := video
	video.Views++
	s.data.Videos[id] = video
	if err := s.persist(); err != nil {
		s.data.Videos[id] = previous
		return models.Video{}, err
	}
	return video, nil
}

// ListVideos returns videos matching the filter, newest first.
func (s *Storage) ListVideos(filter VideoFilter) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if filter.UserID != "" && video.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(video.Category, filter.Category) {
			continue
		}
		if filter.Tag != "" && !containsFold(video.Tags, filter.Tag) {
			continue
		}
		if filter.Search != "" && !searchMatches(filter.Search, video.Title, video.Description) {
			continue
		}
		videos = append(videos, video)
	}

	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID < videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})

	if filter.Limit > 0 && len(videos) > filter.Limit {
		videos = videos[:filter.Limit]
	}
	return videos, nil
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}

// ListSavedVideos returns the user's saved videos in the order they were
// saved. Saved IDs whose videos were deleted are skipped.
func (s *Storage) ListSavedVideos(userID string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.Users[userID]
	if !ok {
		return nil, NotFoundError{Entity: "user", ID: userID}
	}

	videos := make([]models.Video, 0, len(user.SavedVideos))
	for _, videoID := range user.SavedVideos {
		if video, ok := s.data.Videos[videoID]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

func (s *Storage) UpdateVideo(id, actorID string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, NotFoundError{Entity: "video", ID: id}
	}
	if video.UserID != actorID {
		return models.Video{}, AuthorizationError{Entity: "video", ID: id}
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, ValidationError{Field: "title", Reason: "is required"}
		}
		if len(title) > MaxTitleLength {
			return models.Video{}, ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
		}
		video.Title = title
	}
	if update.Description != nil {
		if len(*update.Description) > MaxVideoDescriptionLength {
			return models.Video{}, ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxVideoDescriptionLength)}
		}
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.ThumbnailURL != nil {
		video.ThumbnailURL = strings.TrimSpace(*update.ThumbnailURL)
	}
	if update.Category != nil {
		video.Category = strings.TrimSpace(*update.Category)
	}
	if update.Tags != nil {
		video.Tags = normalizeTags(*update.Tags)
	}
	if update.Ingredients != nil {
		video.Ingredients = append([]string(nil), (*update.Ingredients)...)
	}
	if update.Instructions != nil {
		video.Instructions = append([]string(nil), (*update.Instructions)...)
	}
	if update.PrepTime != nil {
		video.PrepTime = strings.TrimSpace(*update.PrepTime)
	}
	if update.CookTime != nil {
		video.CookTime = strings.TrimSpace(*update.CookTime)
	}
	if update.Servings != nil {
		if *update.Servings < 0 {
			return models.Video{}, ValidationError{Field: "servings", Reason: "must not be negative"}
		}
		video.Servings = *update.Servings
	}
	video.UpdatedAt = time.Now().UTC()

	previous := s.data.Videos[id]
	s.data.Videos[id] = video
	if err := s.persist(); err != nil {
		s.data.Videos[id] = previous
		return models.Video{}, err
	}
	return video, nil
}

// DeleteVideo removes a video along with its comments and any saved-list
// references to it.
func (s *Storage) DeleteVideo(id, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return NotFoundError{Entity: "video", ID: id}
	}
	if video.UserID != actorID {
		return AuthorizationError{Entity: "video", ID: id}
	}

	removedComments := make(map[string]models.Comment)
	for commentID, comment := range s.data.Comments {
		if comment.VideoID == id {
			removedComments[commentID] = comment
			delete(s.data.Comments, commentID)
		}
	}
	touchedUsers := make(map[string]models.User)
	for userID, user := range s.data.Users {
		if !user.HasSaved(id) {
			continue
		}
		touchedUsers[userID] = user
		filtered := make([]string, 0, len(user.SavedVideos))
		for _, savedID := range user.SavedVideos {
			if savedID != id {
				filtered = append(filtered, savedID)
			}
		}
		user.SavedVideos = filtered
		s.data.Users[userID] = user
	}
	delete(s.data.Videos, id)

	if err := s.persist(); err != nil {
		s.data.Videos[id] = video
		for commentID, comment := range removedComments {
			s.data.Comments[commentID] = comment
		}
		for userID, user := range touchedUsers {
			s.data.Users[userID] = user
		}
		return err
	}
	return nil
}

// ToggleVideoLike flips the actor's like on a video. It reports true when the
// like is now present and false when it was removed.
func (s *Storage) ToggleVideoLike(videoID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[videoID]
	if !ok {
		return false, NotFoundError{Entity: "video", ID: videoID}
	}
	if _, ok := s.data.Users[userID]; !ok {
		return false, NotFoundError{Entity: "user", ID: userID}
	}

	previous := video
	liked := false
	if video.LikedBy(userID) {
		filtered := make([]string, 0, len(video.Likes))
		for _, id := range video.Likes {
			if id != userID {
				filtered = append(filtered, id)
			}
		}
		video.Likes = filtered
	} else {
		video.Likes = append(append([]string(nil), video.Likes...), userID)
		liked = true
	}
	video.UpdatedAt = time.Now().UTC()

	s.data.Videos[videoID] = video
	if err := s.persist(); err != nil {
		s.data.Videos[videoID] = previous
		return false, err
	}
	return liked, nil
}

// ToggleSavedVideo flips a video's membership in the user's saved list. It
// reports true when the video is now saved.
func (s *Storage) ToggleSavedVideo(userID, videoID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[userID]
	if !ok {
		return false, NotFoundError{Entity: "user", ID: userID}
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return false, NotFoundError{Entity: "video", ID: videoID}
	}

	previous := user
	saved := false
	if user.HasSaved(videoID) {
		filtered := make([]string, 0, len(user.SavedVideos))
		for _, id := range user.SavedVideos {
			if id != videoID {
				filtered = append(filtered, id)
			}
		}
		user.SavedVideos = filtered
	} else {
		user.SavedVideos = append(append([]string(nil), user.SavedVideos...), videoID)
		saved = true
	}
	user.UpdatedAt = time.Now().UTC()

	s.data.Users[userID] = user
	if err := s.persist(); err != nil {
		s.data.Users[userID] = previous
		return false, err
	}
	return saved, nil
}
