package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cookstream/internal/models"
)

func validateStreamParams(params CreateStreamParams) error {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return ValidationError{Field: "title", Reason: "is required"}
	}
	if len(title) > MaxTitleLength {
		return ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
	}
	if strings.TrimSpace(params.Description) == "" {
		return ValidationError{Field: "description", Reason: "is required"}
	}
	if len(params.Description) > MaxStreamDescriptionLength {
		return ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxStreamDescriptionLength)}
	}
	if strings.TrimSpace(params.Category) == "" {
		return ValidationError{Field: "category", Reason: "is required"}
	}
	return nil
}

// CreateStream registers a stream in the scheduled state with a fresh stream
// key. It does not go live until StartStream is called.
func (s *Storage) CreateStream(ownerID string, params CreateStreamParams) (models.LiveStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.LiveStream{}, NotFoundError{Entity: "user", ID: ownerID}
	}
	if err := validateStreamParams(params); err != nil {
		return models.LiveStream{}, err
	}

	id, err := generateID()
	if err != nil {
		return models.LiveStream{}, err
	}
	streamKey, err := generateStreamKey()
	if err != nil {
		return models.LiveStream{}, err
	}

	now := time.Now().UTC()
	stream := models.LiveStream{
		ID:           id,
		Title:        strings.TrimSpace(params.Title),
		Description:  strings.TrimSpace(params.Description),
		UserID:       ownerID,
		ThumbnailURL: strings.TrimSpace(params.ThumbnailURL),
		StreamKey:    streamKey,
		Active:       false,
		Viewers:      0,
		ScheduledFor: params.ScheduledFor,
		Category:     strings.TrimSpace(params.Category),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.data.Streams[id] = stream
	if err := s.persist(); err != nil {
		delete(s.data.Streams, id)
		return models.LiveStream{}, err
	}
	return stream, nil
}

// StartStream transitions a scheduled stream to live. Only the owner may
// start it, and ended streams stay ended.
func (s *Storage) StartStream(id, actorID string) (models.LiveStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.data.Streams[id]
	if !ok {
		return models.LiveStream{}, NotFoundError{Entity: "stream", ID: id}
	}
	if stream.UserID != actorID {
		return models.LiveStream{}, AuthorizationError{Entity: "stream", ID: id}
	}
	if stream.Active {
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(models.StreamStateLive), Reason: "already live"}
	}
	if stream.EndedAt != nil {
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(models.StreamStateEnded), Reason: "cannot restart an ended stream"}
	}

	previous := stream
	stream.Active = true
	stream.Viewers = 0
	stream.UpdatedAt = time.Now().UTC()

	s.data.Streams[id] = stream
	if err := s.persist(); err != nil {
		s.data.Streams[id] = previous
		return models.LiveStream{}, err
	}
	return stream, nil
}

// EndStream transitions a live stream to ended. When params request it, the
// broadcast is preserved as a video tagged as a live recording.
func (s *Storage) EndStream(id, actorID string, params EndStreamParams) (models.LiveStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.data.Streams[id]
	if !ok {
		return models.LiveStream{}, NotFoundError{Entity: "stream", ID: id}
	}
	if stream.UserID != actorID {
		return models.LiveStream{}, AuthorizationError{Entity: "stream", ID: id}
	}
	if !stream.Active {
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(stream.State()), Reason: "not live"}
	}
	if params.SaveAsVideo && strings.TrimSpace(params.VideoURL) == "" {
		return models.LiveStream{}, ValidationError{Field: "videoUrl", Reason: "is required to save the recording"}
	}

	now := time.Now().UTC()
	previous := stream
	stream.Active = false
	stream.EndedAt = &now
	stream.UpdatedAt = now
	s.data.Streams[id] = stream

	var recordingID string
	if params.SaveAsVideo {
		videoID, err := generateID()
		if err != nil {
			s.data.Streams[id] = previous
			return models.LiveStream{}, err
		}
		endedAt := now
		s.data.Videos[videoID] = models.Video{
			ID:           videoID,
			Title:        stream.Title,
			Description:  stream.Description,
			VideoURL:     strings.TrimSpace(params.VideoURL),
			ThumbnailURL: stream.ThumbnailURL,
			UserID:       actorID,
			Likes:        []string{},
			Comments:     []string{},
			Category:     stream.Category,
			Tags:         []string{LiveRecordingTag},
			IsLive:       true,
			LiveEndedAt:  &endedAt,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		recordingID = videoID
	}

	if err := s.persist(); err != nil {
		s.data.Streams[id] = previous
		if recordingID != "" {
			delete(s.data.Videos, recordingID)
		}
		return models.LiveStream{}, err
	}
	return stream, nil
}

func (s *Storage) GetStream(id string) (models.LiveStream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream, ok := s.data.Streams[id]
	return stream, ok
}

// ViewStream returns the stream and counts the read as a viewer when the
// stream is live.
func (s *Storage) ViewStream(id string) (models.LiveStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.data.Streams[id]
	if !ok {
		return models.LiveStream{}, NotFoundError{Entity: "stream", ID: id}
	}
	if !stream.Active {
		return stream, nil
	}

	previous := stream
	stream.Viewers++
	s.data.Streams[id] = stream
	if err := s.persist(); err != nil {
		s.data.Streams[id] = previous
		return models.LiveStream{}, err
	}
	return stream, nil
}

// ListStreams returns streams newest-created-first, optionally restricted to
// live ones.
func (s *Storage) ListStreams(activeOnly bool) ([]models.LiveStream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streams := make([]models.LiveStream, 0, len(s.data.Streams))
	for _, stream := range s.data.Streams {
		if activeOnly && !stream.Active {
			continue
		}
		streams = append(streams, stream)
	}
	sort.Slice(streams, func(i, j int) bool {
		if streams[i].CreatedAt.Equal(streams[j].CreatedAt) {
			return streams[i].ID < streams[j].ID
		}
		return streams[i].CreatedAt.After(streams[j].CreatedAt)
	})
	return streams, nil
}

func (s *Storage) UpdateStream(id, actorID string, update StreamUpdate) (models.LiveStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.data.Streams[id]
	if !ok {
		return models.LiveStream{}, NotFoundError{Entity: "stream", ID: id}
	}
	if stream.UserID != actorID {
		return models.LiveStream{}, AuthorizationError{Entity: "stream", ID: id}
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.LiveStream{}, ValidationError{Field: "title", Reason: "is required"}
		}
		if len(title) > MaxTitleLength {
			return models.LiveStream{}, ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
		}
		stream.Title = title
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description == "" {
			return models.LiveStream{}, ValidationError{Field: "description", Reason: "is required"}
		}
		if len(description) > MaxStreamDescriptionLength {
			return models.LiveStream{}, ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxStreamDescriptionLength)}
		}
		stream.Description = description
	}
	if update.ThumbnailURL != nil {
		stream.ThumbnailURL = strings.TrimSpace(*update.ThumbnailURL)
	}
	if update.Category != nil {
		category := strings.TrimSpace(*update.Category)
		if category == "" {
			return models.LiveStream{}, ValidationError{Field: "category", Reason: "is required"}
		}
		stream.Category = category
	}
	if update.ScheduledFor != nil {
		scheduled := *update.ScheduledFor
		stream.ScheduledFor = &scheduled
	}
	stream.UpdatedAt = time.Now().UTC()

	previous := s.data.Streams[id]
	s.data.Streams[id] = stream
	if err := s.persist(); err != nil {
		s.data.Streams[id] = previous
		return models.LiveStream{}, err
	}
	return stream, nil
}

func (s *Storage) DeleteStream(id, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.data.Streams[id]
	if !ok {
		return NotFoundError{Entity: "stream", ID: id}
	}
	if stream.UserID != actorID {
		return AuthorizationError{Entity: "stream", ID: id}
	}

	delete(s.data.Streams, id)
	if err := s.persist(); err != nil {
		s.data.Streams[id] = stream
		return err
	}
	return nil
}
