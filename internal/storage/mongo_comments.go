package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cookstream/internal/models"
)

func (m *MongoRepository) CreateComment(authorID, videoID, text string, parentID *string) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, ValidationError{Field: "text", Reason: "is required"}
	}
	if len(text) > MaxCommentLength {
		return models.Comment{}, ValidationError{Field: "text", Reason: fmt.Sprintf("exceeds %d characters", MaxCommentLength)}
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": authorID}); err != nil {
		return models.Comment{}, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return models.Comment{}, NotFoundError{Entity: "user", ID: authorID}
	}
	if count, err := m.videos.CountDocuments(ctx, bson.M{"_id": videoID}); err != nil {
		return models.Comment{}, PersistenceError{Op: "count videos", Err: err}
	} else if count == 0 {
		return models.Comment{}, NotFoundError{Entity: "video", ID: videoID}
	}

	hasParent := parentID != nil && *parentID != ""
	if hasParent {
		var parent models.Comment
		if err := m.comments.FindOne(ctx, bson.M{"_id": *parentID}).Decode(&parent); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return models.Comment{}, NotFoundError{Entity: "comment", ID: *parentID}
			}
			return models.Comment{}, PersistenceError{Op: "find parent comment", Err: err}
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

	if _, err := m.comments.InsertOne(ctx, comment); err != nil {
		return models.Comment{}, PersistenceError{Op: "insert comment", Err: err}
	}
	if hasParent {
		if _, err := m.comments.UpdateOne(ctx,
			bson.M{"_id": *parentID},
			bson.M{"$push": bson.M{"replies": id}, "$set": bson.M{"updatedAt": now}},
		); err != nil {
			return models.Comment{}, PersistenceError{Op: "link reply", Err: err}
		}
	}
	if _, err := m.videos.UpdateOne(ctx,
		bson.M{"_id": videoID},
		bson.M{"$push": bson.M{"comments": id}, "$set": bson.M{"updatedAt": now}},
	); err != nil {
		return models.Comment{}, PersistenceError{Op: "link comment", Err: err}
	}
	return comment, nil
}

func (m *MongoRepository) GetComment(id string) (models.Comment, bool) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var comment models.Comment
	if err := m.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return models.Comment{}, false
	}
	return comment, true
}

func (m *MongoRepository) ListCommentThreads(videoID string) ([]models.Comment, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.videos.CountDocuments(ctx, bson.M{"_id": videoID}); err != nil {
		return nil, PersistenceError{Op: "count videos", Err: err}
	} else if count == 0 {
		return nil, NotFoundError{Entity: "video", ID: videoID}
	}

	cursor, err := m.comments.Find(ctx,
		bson.M{"videoId": videoID, "parentId": nil},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, PersistenceError{Op: "find comments", Err: err}
	}
	defer cursor.Close(ctx)

	comments := make([]models.Comment, 0)
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, PersistenceError{Op: "decode comments", Err: err}
	}
	return comments, nil
}

func (m *MongoRepository) ListReplies(commentID string) ([]models.Comment, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var parent models.Comment
	if err := m.comments.FindOne(ctx, bson.M{"_id": commentID}).Decode(&parent); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFoundError{Entity: "comment", ID: commentID}
		}
		return nil, PersistenceError{Op: "find comment", Err: err}
	}
	if len(parent.Replies) == 0 {
		return []models.Comment{}, nil
	}

	cursor, err := m.comments.Find(ctx, bson.M{"_id": bson.M{"$in": parent.Replies}})
	if err != nil {
		return nil, PersistenceError{Op: "find replies", Err: err}
	}
	defer cursor.Close(ctx)

	byID := make(map[string]models.Comment)
	for cursor.Next(ctx) {
		var reply models.Comment
		if err := cursor.Decode(&reply); err != nil {
			return nil, PersistenceError{Op: "decode reply", Err: err}
		}
		byID[reply.ID] = reply
	}
	if err := cursor.Err(); err != nil {
		return nil, PersistenceError{Op: "iterate replies", Err: err}
	}

	// Keep posting order.
	replies := make([]models.Comment, 0, len(byID))
	for _, replyID := range parent.Replies {
		if reply, ok := byID[replyID]; ok {
			replies = append(replies, reply)
		}
	}
	return replies, nil
}

func (m *MongoRepository) ToggleCommentLike(commentID, userID string) (bool, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": userID}); err != nil {
		return false, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return false, NotFoundError{Entity: "user", ID: userID}
	}

	var comment models.Comment
	if err := m.comments.FindOne(ctx, bson.M{"_id": commentID}).Decode(&comment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, NotFoundError{Entity: "comment", ID: commentID}
		}
		return false, PersistenceError{Op: "find comment", Err: err}
	}

	liked := true
	update := bson.M{
		"$addToSet": bson.M{"likes": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	for _, id := range comment.Likes {
		if id == userID {
			liked = false
			update = bson.M{
				"$pull": bson.M{"likes": userID},
				"$set":  bson.M{"updatedAt": time.Now().UTC()},
			}
			break
		}
	}
	if _, err := m.comments.UpdateOne(ctx, bson.M{"_id": commentID}, update); err != nil {
		return false, PersistenceError{Op: "toggle comment like", Err: err}
	}
	return liked, nil
}
