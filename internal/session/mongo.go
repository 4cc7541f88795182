package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tg_invest_bot/internal/config"
)

// CollectionSessions is the MongoDB collection holding chat sessions.
const CollectionSessions = "sessions"

// mongoClient captures the subset of mongo.Client behavior we rely on to allow
// lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

// sessionCollection is the collection surface the store uses, faked in tests.
type sessionCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

// createIndexes is overridable for tests.
var createIndexes = func(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) ([]string, error) {
	return coll.Indexes().CreateMany(ctx, models)
}

// MongoStore keeps sessions in a MongoDB collection, one document per chat,
// upserted wholesale on every Put.
type MongoStore struct {
	client mongoClient
	db     *mongo.Database
	coll   sessionCollection
}

// NewMongoStore initializes the Mongo client from configuration, verifies
// connectivity, and ensures the chat_id index.
func NewMongoStore(ctx context.Context, cfg config.Config) (*MongoStore, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.MongoDB)
	coll := db.Collection(CollectionSessions)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "chat_id", Value: 1}},
			Options: options.Index().
				SetName("chat_id_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, coll, indexes); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create sessions indexes: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     db,
		coll:   coll,
	}, nil
}

// Get fetches the session document for chatID.
func (m *MongoStore) Get(ctx context.Context, chatID int64) (Session, bool, error) {
	if m == nil || m.coll == nil {
		return Session{}, false, errors.New("mongo session store is not initialized")
	}

	result := m.coll.FindOne(ctx, bson.M{"chat_id": chatID})
	if result == nil {
		return Session{}, false, errors.New("find session returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("find session %d: %w", chatID, err)
	}

	var sess Session
	if err := result.Decode(&sess); err != nil {
		return Session{}, false, fmt.Errorf("decode session %d: %w", chatID, err)
	}

	return sess, true, nil
}

// Put upserts the session document, replacing it wholesale so cleared
// transient fields do not linger.
func (m *MongoStore) Put(ctx context.Context, chatID int64, sess Session) error {
	if m == nil || m.coll == nil {
		return errors.New("mongo session store is not initialized")
	}

	sess.ChatID = chatID
	sess.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := m.coll.ReplaceOne(ctx,
		bson.M{"chat_id": chatID},
		sess,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put session %d: %w", chatID, err)
	}

	return nil
}

// Delete removes the session document.
func (m *MongoStore) Delete(ctx context.Context, chatID int64) error {
	if m == nil || m.coll == nil {
		return errors.New("mongo session store is not initialized")
	}

	if _, err := m.coll.DeleteOne(ctx, bson.M{"chat_id": chatID}); err != nil {
		return fmt.Errorf("delete session %d: %w", chatID, err)
	}

	return nil
}

// Count returns the number of session documents.
func (m *MongoStore) Count(ctx context.Context) (int64, error) {
	if m == nil || m.coll == nil {
		return 0, errors.New("mongo session store is not initialized")
	}

	count, err := m.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}

	return count, nil
}

// Ping verifies Mongo connectivity.
func (m *MongoStore) Ping(ctx context.Context) error {
	if m == nil || m.client == nil {
		return errors.New("mongo session store is not initialized")
	}

	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the Mongo client.
func (m *MongoStore) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}

	return m.client.Disconnect(ctx)
}
