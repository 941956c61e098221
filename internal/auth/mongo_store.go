package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoSessionTimeout = 5 * time.Second

// MongoSessionStore persists sessions to a MongoDB collection so multiple API
// replicas can share authentication state. Tokens are stored hashed.
type MongoSessionStore struct {
	sessions *mongo.Collection
}

type mongoSessionDoc struct {
	TokenHash         string    `bson:"_id"`
	UserID            string    `bson:"userId"`
	ExpiresAt         time.Time `bson:"expiresAt"`
	AbsoluteExpiresAt time.Time `bson:"absoluteExpiresAt"`
}

// NewMongoSessionStore builds a session store on the given database handle.
func NewMongoSessionStore(db *mongo.Database) (*MongoSessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("mongo database required")
	}
	return &MongoSessionStore{sessions: db.Collection("sessions")}, nil
}

func hashSessionToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("session token required")
	}
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:]), nil
}

func (s *MongoSessionStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), mongoSessionTimeout)
}

// Save stores or refreshes the session token.
func (s *MongoSessionStore) Save(token, userID string, expiresAt, absoluteExpiresAt time.Time) error {
	hashed, err := hashSessionToken(token)
	if err != nil {
		return err
	}
	ctx, cancel := s.opCtx()
	defer cancel()

	_, err = s.sessions.UpdateOne(ctx,
		bson.M{"_id": hashed},
		bson.M{"$set": bson.M{
			"userId":            userID,
			"expiresAt":         expiresAt.UTC(),
			"absoluteExpiresAt": absoluteExpiresAt.UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get fetches the session details for the provided token.
func (s *MongoSessionStore) Get(token string) (SessionRecord, bool, error) {
	hashed, err := hashSessionToken(token)
	if err != nil {
		return SessionRecord{}, false, err
	}
	ctx, cancel := s.opCtx()
	defer cancel()

	var doc mongoSessionDoc
	err = s.sessions.FindOne(ctx, bson.M{"_id": hashed}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return SessionRecord{}, false, nil
	} else if err != nil {
		return SessionRecord{}, false, fmt.Errorf("get session: %w", err)
	}
	return SessionRecord{
		Token:             token,
		UserID:            doc.UserID,
		ExpiresAt:         doc.ExpiresAt,
		AbsoluteExpiresAt: doc.AbsoluteExpiresAt,
	}, true, nil
}

// Delete removes the session token.
func (s *MongoSessionStore) Delete(token string) error {
	hashed, err := hashSessionToken(token)
	if err != nil {
		return err
	}
	ctx, cancel := s.opCtx()
	defer cancel()

	if _, err := s.sessions.DeleteOne(ctx, bson.M{"_id": hashed}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions past either expiry.
func (s *MongoSessionStore) PurgeExpired(now time.Time) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	_, err := s.sessions.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"expiresAt": bson.M{"$lt": now.UTC()}},
		bson.M{"absoluteExpiresAt": bson.M{"$lt": now.UTC()}},
	}})
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	return nil
}

// Ping verifies the backing database is reachable.
func (s *MongoSessionStore) Ping(ctx context.Context) error {
	return s.sessions.Database().Client().Ping(ctx, nil)
}
