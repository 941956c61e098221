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

func (m *MongoRepository) CreateUser(params CreateUserParams) (models.User, error) {
	if err := validateUserParams(params); err != nil {
		return models.User{}, err
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	normalizedEmail := strings.TrimSpace(strings.ToLower(params.Email))
	count, err := m.users.CountDocuments(ctx, bson.M{"email": normalizedEmail})
	if err != nil {
		return models.User{}, PersistenceError{Op: "count users", Err: err}
	}
	if count > 0 {
		return models.User{}, ValidationError{Field: "email", Reason: "already in use"}
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}
	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           id,
		Name:         strings.TrimSpace(params.Name),
		Email:        normalizedEmail,
		PasswordHash: passwordHash,
		AvatarURL:    strings.TrimSpace(params.AvatarURL),
		Bio:          strings.TrimSpace(params.Bio),
		SubscribedTo: []string{},
		SavedVideos:  []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		return models.User{}, PersistenceError{Op: "insert user", Err: err}
	}
	return user, nil
}

func (m *MongoRepository) GetUser(id string) (models.User, bool) {
	ctx, cancel := m.opCtx()
	defer cancel()

	var user models.User
	err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (m *MongoRepository) GetUserByEmail(email string) (models.User, bool) {
	ctx, cancel := m.opCtx()
	defer cancel()

	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	var user models.User
	err := m.users.FindOne(ctx, bson.M{"email": normalizedEmail}).Decode(&user)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (m *MongoRepository) AuthenticateUser(email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	user, ok := m.GetUserByEmail(email)
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (m *MongoRepository) UpdateUser(id string, update UserUpdate) (models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.User{}, ValidationError{Field: "name", Reason: "is required"}
		}
		if len(name) > MaxNameLength {
			return models.User{}, ValidationError{Field: "name", Reason: fmt.Sprintf("exceeds %d characters", MaxNameLength)}
		}
		set["name"] = name
	}
	if update.AvatarURL != nil {
		set["avatarUrl"] = strings.TrimSpace(*update.AvatarURL)
	}
	if update.Bio != nil {
		bio := strings.TrimSpace(*update.Bio)
		if len(bio) > MaxBioLength {
			return models.User{}, ValidationError{Field: "bio", Reason: fmt.Sprintf("exceeds %d characters", MaxBioLength)}
		}
		set["bio"] = bio
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	var user models.User
	err := m.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, NotFoundError{Entity: "user", ID: id}
	} else if err != nil {
		return models.User{}, PersistenceError{Op: "update user", Err: err}
	}
	return user, nil
}

func (m *MongoRepository) Subscribe(userID, creatorID string) (bool, error) {
	if userID == creatorID {
		return false, ValidationError{Field: "creatorId", Reason: "cannot subscribe to yourself"}
	}

	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": creatorID}); err != nil {
		return false, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return false, NotFoundError{Entity: "user", ID: creatorID}
	}

	result, err := m.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"subscribedTo": creatorID},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, PersistenceError{Op: "subscribe", Err: err}
	}
	if result.MatchedCount == 0 {
		return false, NotFoundError{Entity: "user", ID: userID}
	}
	return result.ModifiedCount > 0, nil
}

func (m *MongoRepository) Unsubscribe(userID, creatorID string) (bool, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	result, err := m.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"subscribedTo": creatorID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, PersistenceError{Op: "unsubscribe", Err: err}
	}
	if result.MatchedCount == 0 {
		return false, NotFoundError{Entity: "user", ID: userID}
	}
	return result.ModifiedCount > 0, nil
}

func (m *MongoRepository) ListSubscriberIDs(creatorID string) ([]string, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": creatorID}); err != nil {
		return nil, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return nil, NotFoundError{Entity: "user", ID: creatorID}
	}

	cursor, err := m.users.Find(ctx,
		bson.M{"subscribedTo": creatorID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, PersistenceError{Op: "find subscribers", Err: err}
	}
	defer cursor.Close(ctx)

	ids := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, PersistenceError{Op: "decode subscriber", Err: err}
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, PersistenceError{Op: "iterate subscribers", Err: err}
	}
	return ids, nil
}

func (m *MongoRepository) CountSubscribers(creatorID string) (int, error) {
	ctx, cancel := m.opCtx()
	defer cancel()

	if count, err := m.users.CountDocuments(ctx, bson.M{"_id": creatorID}); err != nil {
		return 0, PersistenceError{Op: "count users", Err: err}
	} else if count == 0 {
		return 0, NotFoundError{Entity: "user", ID: creatorID}
	}

	count, err := m.users.CountDocuments(ctx, bson.M{"subscribedTo": creatorID})
	if err != nil {
		return 0, PersistenceError{Op: "count subscribers", Err: err}
	}
	return int(count), nil
}
