package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cookstream/internal/models"
)

func (m *MongoRepository) CreateVideo(ownerID string, params CreateVideoParams) (models.Video, error) {
	if err := validateVideoParams(params); err != nil {
		return models.Video{}, err
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": ownerID}); err != nil {
		return models.Video{}, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return models.Video{}, NotFoundError{Entity: "user", ID: ownerID}
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
	if _, err := m.videos.InsertOne(ctx, video); err != nil {
		return models.Video{}, PersistenceError{Op: "insert video", Err: err}
	}
	return video, nil
}

func (m *MongoRepository) GetVideo(id string) (models.Video, bool) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var video models.Video
	if err := m.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		return models.Video{}, false
	}
	return video, true
}

func (m *MongoRepository) ViewVideo(id string) (models.Video, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var video models.Video
	err := m.videos.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Video{}, NotFoundError{Entity: "video", ID: id}
	} else if err != nil {
		return models.Video{}, PersistenceError{Op: "increment views", Err: err}
	}
	return video, nil
}

func (m *MongoRepository) ListVideos(filter VideoFilter) ([]models.Video, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Category != "" {
		query["category"] = primitive.Regex{Pattern: "^" + escapeRegex(filter.Category) + "$", Options: "i"}
	}
	if filter.Tag != "" {
		query["tags"] = strings.ToLower(strings.TrimSpace(filter.Tag))
	}
	if filter.Search != "" {
		pattern := escapeRegex(strings.TrimSpace(filter.Search))
		query["$or"] = bson.A{
			bson.M{"title": primitive.Regex{Pattern: pattern, Options: "i"}},
			bson.M{"description": primitive.Regex{Pattern: pattern, Options: "i"}},
		}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		findOptions.SetLimit(int64(filter.Limit))
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	cursor, err := m.videos.Find(ctx, query, findOptions)
	if err != nil {
		return nil, PersistenceError{Op: "find videos", Err: err}
	}
	defer cursor.Close(ctx)

	videos := make([]models.Video, 0)
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, PersistenceError{Op: "decode videos", Err: err}
	}
	return videos, nil
}

func escapeRegex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
		`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
		`^`, `\^`, `$`, `\$`, `|`, `\|`,
	)
	return replacer.Replace(s)
}

func (m *MongoRepository) ListSavedVideos(userID string) ([]models.Video, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var user models.User
	if err := m.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFoundError{Entity: "user", ID: userID}
		}
		return nil, PersistenceError{Op: "find user", Err: err}
	}
	if len(user.SavedVideos) == 0 {
		return []models.Video{}, nil
	}

	cursor, err := m.videos.Find(ctx, bson.M{"_id": bson.M{"$in": user.SavedVideos}})
	if err != nil {
		return nil, PersistenceError{Op: "find saved videos", Err: err}
	}
	defer cursor.Close(ctx)

	byID := make(map[string]models.Video)
	for cursor.Next(ctx) {
		var video models.Video
		if err := cursor.Decode(&video); err != nil {
			return nil, PersistenceError{Op: "decode video", Err: err}
		}
		byID[video.ID] = video
	}
	if err := cursor.Err(); err != nil {
		return nil, PersistenceError{Op: "iterate saved videos", Err: err}
	}

	// Preserve the order videos were saved in.
	videos := make([]models.Video, 0, len(byID))
	for _, videoID := range user.SavedVideos {
		if video, ok := byID[videoID]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

func (m *MongoRepository) UpdateVideo(id, actorID string, update VideoUpdate) (models.Video, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, ValidationError{Field: "title", Reason: "is required"}
		}
		if len(title) > MaxTitleLength {
			return models.Video{}, ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", MaxTitleLength)}
		}
		set["title"] = title
	}
	if update.Description != nil {
		if len(*update.Description) > MaxVideoDescriptionLength {
			return models.Video{}, ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxVideoDescriptionLength)}
		}
		set["description"] = strings.TrimSpace(*update.Description)
	}
	if update.ThumbnailURL != nil {
		set["thumbnailUrl"] = strings.TrimSpace(*update.ThumbnailURL)
	}
	if update.Category != nil {
		set["category"] = strings.TrimSpace(*update.Category)
	}
	if update.Tags != nil {
		set["tags"] = normalizeTags(*update.Tags)
	}
	if update.Ingredients != nil {
		set["ingredients"] = append([]string(nil), (*update.Ingredients)...)
	}
	if update.Instructions != nil {
		set["instructions"] = append([]string(nil), (*update.Instructions)...)
	}
	if update.PrepTime != nil {
		set["prepTime"] = strings.TrimSpace(*update.PrepTime)
	}
	if update.CookTime != nil {
		set["cookTime"] = strings.TrimSpace(*update.CookTime)
	}
	if update.Servings != nil {
		if *update.Servings < 0 {
			return models.Video{}, ValidationError{Field: "servings", Reason: "must not be negative"}
		}
		set["servings"] = *update.Servings
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	var current models.Video
	if err := m.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&current); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Video{}, NotFoundError{Entity: "video", ID: id}
		}
		return models.Video{}, PersistenceError{Op: "find video", Err: err}
	}
	if current.UserID != actorID {
		return models.Video{}, AuthorizationError{Entity: "video", ID: id}
	}

	var video models.Video
	err := m.videos.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&video)
	if err != nil {
		return models.Video{}, PersistenceError{Op: "update video", Err: err}
	}
	return video, nil
}

func (m *MongoRepository) DeleteVideo(id, actorID string) error {
	ctx, cancel := m.opCtx()
	defer cancel()

	var video models.Video
	if err := m.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return NotFoundError{Entity: "video", ID: id}
		}
		return PersistenceError{Op: "find video", Err: err}
	}
	if video.UserID != actorID {
		return AuthorizationError{Entity: "video", ID: id}
	}

	if _, err := m.videos.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return PersistenceError{Op: "delete video", Err: err}
	}
	if _, err := m.comments.DeleteMany(ctx, bson.M{"videoId": id}); err != nil {
		return PersistenceError{Op: "delete video comments", Err: err}
	}
	if _, err := m.users.UpdateMany(ctx,
		bson.M{"savedVideos": id},
		bson.M{"$pull": bson.M{"savedVideos": id}},
	); err != nil {
		return PersistenceError{Op: "clear saved references", Err: err}
	}
	return nil
}

func (m *MongoRepository) ToggleVideoLike(videoID, userID string) (bool, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": userID}); err != nil {
		return false, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return false, NotFoundError{Entity: "user", ID: userID}
	}

	var video models.Video
	if err := m.videos.FindOne(ctx, bson.M{"_id": videoID}).Decode(&video); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, NotFoundError{Entity: "video", ID: videoID}
		}
		return false, PersistenceError{Op: "find video", Err: err}
	}

	update := bson.M{
		"$addToSet": bson.M{"likes": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	liked := true
	if video.LikedBy(userID) {
		update = bson.M{
			"$pull": bson.M{"likes": userID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		}
		liked = false
	}
	if _, err := m.videos.UpdateOne(ctx, bson.M{"_id": videoID}, update); err != nil {
		return false, PersistenceError{Op: "toggle like", Err: err}
	}
	return liked, nil
}

func (m *MongoRepository) ToggleSavedVideo(userID, videoID string) (bool, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.videos.CountDocuments(ctx, bson.M{"_id": videoID}); err != nil {
		return false, PersistenceError{Op: "count videos", Err: err}
	} else if count == 0 {
		return false, NotFoundError{Entity: "video", ID: videoID}
	}

	var user models.User
	if err := m.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, NotFoundError{Entity: "user", ID: userID}
		}
		return false, PersistenceError{Op: "find user", Err: err}
	}

	update := bson.M{
		"$addToSet": bson.M{"savedVideos": videoID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	saved := true
	if user.HasSaved(videoID) {
		update = bson.M{
			"$pull": bson.M{"savedVideos": videoID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		}
		saved = false
	}
	if _, err := m.users.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return false, PersistenceError{Op: "toggle saved video", Err: err}
	}
	return saved, nil
}
