package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cookstream/internal/models"
)

func (m *MongoRepository) CreateStream(ownerID string, params CreateStreamParams) (models.LiveStream, error) {
	if err := validateStreamParams(params); err != nil {
		return models.LiveStream{}, err
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": ownerID}); err != nil {
		return models.LiveStream{}, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return models.LiveStream{}, NotFoundError{Entity: "user", ID: ownerID}
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
	if _, err := m.streams.InsertOne(ctx, stream); err != nil {
		return models.LiveStream{}, PersistenceError{Op: "insert stream", Err: err}
	}
	return stream, nil
}

func (m *MongoRepository) loadOwnedStream(ctx context.Context, id, actorID string) (models.LiveStream, error) {
	var stream models.LiveStream
	if err := m.streams.FindOne(ctx, bson.M{"_id": id}).Decode(&stream); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.LiveStream{}, NotFoundError{Entity: "stream", ID: id}
		}
		return models.LiveStream{}, PersistenceError{Op: "find stream", Err: err}
	}
	if stream.UserID != actorID {
		return models.LiveStream{}, AuthorizationError{Entity: "stream", ID: id}
	}
	return stream, nil
}

func (m *MongoRepository) StartStream(id, actorID string) (models.LiveStream, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	stream, err := m.loadOwnedStream(ctx, id, actorID)
	if err != nil {
		return models.LiveStream{}, err
	}
	if stream.Active {
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(models.StreamStateLive), Reason: "already live"}
	}
	if stream.EndedAt != nil {
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(models.StreamStateEnded), Reason: "cannot restart an ended stream"}
	}

	var updated models.LiveStream
	err = m.streams.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": false, "endedAt": nil},
		bson.M{"$set": bson.M{"active": true, "viewers": int64(0), "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Lost a race with another transition.
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(models.StreamStateLive), Reason: "already live"}
	} else if err != nil {
		return models.LiveStream{}, PersistenceError{Op: "start stream", Err: err}
	}
	return updated, nil
}

func (m *MongoRepository) EndStream(id, actorID string, params EndStreamParams) (models.LiveStream, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	stream, err := m.loadOwnedStream(ctx, id, actorID)
	if err != nil {
		return models.LiveStream{}, err
	}
	if !stream.Active {
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(stream.State()), Reason: "not live"}
	}
	if params.SaveAsVideo && strings.TrimSpace(params.VideoURL) == "" {
		return models.LiveStream{}, ValidationError{Field: "videoUrl", Reason: "is required to save the recording"}
	}

	now := time.Now().UTC()
	var updated models.LiveStream
	err = m.streams.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"active": false, "endedAt": now, "updatedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.LiveStream{}, InvalidStateError{Entity: "stream", ID: id, State: string(models.StreamStateEnded), Reason: "not live"}
	} else if err != nil {
		return models.LiveStream{}, PersistenceError{Op: "end stream", Err: err}
	}

	if params.SaveAsVideo {
		videoID, err := generateID()
		if err != nil {
			return models.LiveStream{}, err
		}
		endedAt := now
		video := models.Video{
			ID:           videoID,
			Title:        updated.Title,
			Description:  updated.Description,
			VideoURL:     strings.TrimSpace(params.VideoURL),
			ThumbnailURL: updated.ThumbnailURL,
			UserID:       actorID,
			Likes:        []string{},
			Comments:     []string{},
			Category:     updated.Category,
			Tags:         []string{LiveRecordingTag},
			IsLive:       true,
			LiveEndedAt:  &endedAt,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := m.videos.InsertOne(ctx, video); err != nil {
			return models.LiveStream{}, PersistenceError{Op: "insert recording", Err: err}
		}
	}
	return updated, nil
}

func (m *MongoRepository) GetStream(id string) (models.LiveStream, bool) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var stream models.LiveStream
	if err := m.streams.FindOne(ctx, bson.M{"_id": id}).Decode(&stream); err != nil {
		return models.LiveStream{}, false
	}
	return stream, true
}

func (m *MongoRepository) ViewStream(id string) (models.LiveStream, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	// Only live streams count viewers; for inactive streams this falls
	// through to a plain read.
	var stream models.LiveStream
	err := m.streams.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$inc": bson.M{"viewers": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&stream)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := m.streams.FindOne(ctx, bson.M{"_id": id}).Decode(&stream); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return models.LiveStream{}, NotFoundError{Entity: "stream", ID: id}
			}
			return models.LiveStream{}, PersistenceError{Op: "find stream", Err: err}
		}
		return stream, nil
	} else if err != nil {
		return models.LiveStream{}, PersistenceError{Op: "increment viewers", Err: err}
	}
	return stream, nil
}

func (m *MongoRepository) ListStreams(activeOnly bool) ([]models.LiveStream, error) {
	query := bson.M{}
	if activeOnly {
		query["active"] = true
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	cursor, err := m.streams.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, PersistenceError{Op: "find streams", Err: err}
	}
	defer cursor.Close(ctx)

	streams := make([]models.LiveStream, 0)
	if err := cursor.All(ctx, &streams); err != nil {
		return nil, PersistenceError{Op: "decode streams", Err: err}
	}
	return streams, nil
}

func (m *MongoRepository) UpdateStream(id, actorID string, update StreamUpdate) (models.LiveStream, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.LiveStream{}, ValidationError{Field: "title", Reason: "is required"}
		}
		if len(title) > MaxTitleLength {
			return models.LiveStream{}, ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
		}
		set["title"] = title
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description == "" {
			return models.LiveStream{}, ValidationError{Field: "description", Reason: "is required"}
		}
		if len(description) > MaxStreamDescriptionLength {
			return models.LiveStream{}, ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxStreamDescriptionLength)}
		}
		set["description"] = description
	}
	if update.ThumbnailURL != nil {
		set["thumbnailUrl"] = strings.TrimSpace(*update.ThumbnailURL)
	}
	if update.Category != nil {
		category := strings.TrimSpace(*update.Category)
		if category == "" {
			return models.LiveStream{}, ValidationError{Field: "category", Reason: "is required"}
		}
		set["category"] = category
	}
	if update.ScheduledFor != nil {
		set["scheduledFor"] = *update.ScheduledFor
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	if _, err := m.loadOwnedStream(ctx, id, actorID); err != nil {
		return models.LiveStream{}, err
	}

	var stream models.LiveStream
	err := m.streams.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&stream)
	if err != nil {
		return models.LiveStream{}, PersistenceError{Op: "update stream", Err: err}
	}
	return stream, nil
}

func (m *MongoRepository) DeleteStream(id, actorID string) error {
	ctx, cancel := m.opCtx()
	defer cancel()

	if _, err := m.loadOwnedStream(ctx, id, actorID); err != nil {
		return err
	}
	if _, err := m.streams.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return PersistenceError{Op: "delete stream", Err: err}
	}
	return nil
}
