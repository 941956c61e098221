package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoTimeout = 5 * time.Second

// MongoRepository implements Repository against a MongoDB database. IDs are
// the same opaque hex strings the JSON driver issues, stored in _id.
type MongoRepository struct {
	client        *mongo.Client
	users         *mongo.Collection
	videos        *mongo.Collection
	streams       *mongo.Collection
	comments      *mongo.Collection
	notifications *mongo.Collection
	timeout       time.Duration
}

// MongoOption mutates MongoRepository configuration.
type MongoOption func(*MongoRepository)

// WithMongoTimeout overrides the per-operation timeout.
func WithMongoTimeout(timeout time.Duration) MongoOption {
	return func(m *MongoRepository) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// NewMongoRepository connects to the given URI and prepares the collection
// handles. The caller owns the lifecycle and should Close on shutdown.
func NewMongoRepository(ctx context.Context, uri, database string, opts ...MongoOption) (*MongoRepository, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}

	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetConnectTimeout(5 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	repo := &MongoRepository{
		client:        client,
		users:         db.Collection("users"),
		videos:        db.Collection("videos"),
		streams:       db.Collection("streams"),
		comments:      db.Collection("comments"),
		notifications: db.Collection("notifications"),
		timeout:       defaultMongoTimeout,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// Database exposes the underlying handle so sibling stores, such as the
// session store, can share the connection.
func (m *MongoRepository) Database() *mongo.Database {
	return m.users.Database()
}

// Close disconnects the underlying client.
func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// Ping verifies the database is reachable.
func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}
