package session

import (
	"context"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeSessionCollection struct {
	t    *testing.T
	docs map[int64]bson.M
}

func newFakeSessionCollection(t *testing.T) *fakeSessionCollection {
	t.Helper()
	return &fakeSessionCollection{
		t:    t,
		docs: make(map[int64]bson.M),
	}
}

func (f *fakeSessionCollection) chatID(filter interface{}) (int64, error) {
	filterDoc, ok := filter.(bson.M)
	if !ok {
		return 0, fmt.Errorf("unexpected filter type %T", filter)
	}

	switch val := filterDoc["chat_id"].(type) {
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int:
		return int64(val), nil
	default:
		return 0, fmt.Errorf("missing chat_id filter in %v", filterDoc)
	}
}

func (f *fakeSessionCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	chatID, err := f.chatID(filter)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}

	doc, found := f.docs[chatID]
	if !found {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}

	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func (f *fakeSessionCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	chatID, err := f.chatID(filter)
	if err != nil {
		return nil, err
	}

	raw, err := bson.Marshal(replacement)
	if err != nil {
		return nil, fmt.Errorf("marshal replacement: %w", err)
	}

	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal replacement: %w", err)
	}

	_, existed := f.docs[chatID]
	f.docs[chatID] = doc

	result := &mongo.UpdateResult{}
	if existed {
		result.MatchedCount = 1
		result.ModifiedCount = 1
	} else {
		result.UpsertedCount = 1
		result.UpsertedID = chatID
	}

	return result, nil
}

func (f *fakeSessionCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	chatID, err := f.chatID(filter)
	if err != nil {
		return nil, err
	}

	if _, found := f.docs[chatID]; !found {
		return &mongo.DeleteResult{DeletedCount: 0}, nil
	}

	delete(f.docs, chatID)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (f *fakeSessionCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return int64(len(f.docs)), nil
}

func TestMongoStoreRoundTrip(t *testing.T) {
	coll := newFakeSessionCollection(t)
	store := &MongoStore{coll: coll}

	ctx := context.Background()

	if _, found, err := store.Get(ctx, 42); err != nil || found {
		t.Fatalf("expected empty store, got found=%v err=%v", found, err)
	}

	sess := Session{
		Step:     StepVerifyOTP,
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Username: "ada",
		Password: "secret",
	}

	if err := store.Put(ctx, 42, sess); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, found, err := store.Get(ctx, 42)
	if err != nil || !found {
		t.Fatalf("expected session after Put, got found=%v err=%v", found, err)
	}

	if got.ChatID != 42 || got.Step != StepVerifyOTP || got.Email != "ada@example.com" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if got.UpdatedAt.IsZero() {
		t.Fatalf("expected Put to stamp updated_at")
	}
}

func TestMongoStorePutReplacesWholesale(t *testing.T) {
	coll := newFakeSessionCollection(t)
	store := &MongoStore{coll: coll}

	ctx := context.Background()

	if err := store.Put(ctx, 7, Session{Step: StepVerifyOTP, Password: "secret"}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if err := store.Put(ctx, 7, Session{Email: "ada@example.com", Token: "tok", LoggedIn: true}); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	doc := coll.docs[7]
	if _, stale := doc["step"]; stale {
		t.Fatalf("expected step field cleared by replace, got %v", doc)
	}
	if _, stale := doc["password"]; stale {
		t.Fatalf("expected password field cleared by replace, got %v", doc)
	}

	got, _, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	if !got.LoggedIn || got.Token != "tok" {
		t.Fatalf("expected authenticated session, got %+v", got)
	}
}

func TestMongoStoreDeleteAndCount(t *testing.T) {
	coll := newFakeSessionCollection(t)
	store := &MongoStore{coll: coll}

	ctx := context.Background()

	for _, chatID := range []int64{1, 2} {
		if err := store.Put(ctx, chatID, Session{}); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 sessions, got %d err=%v", count, err)
	}

	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, found, _ := store.Get(ctx, 1); found {
		t.Fatalf("expected session 1 to be gone")
	}
}

func TestMongoStoreGuardsUninitialized(t *testing.T) {
	var store *MongoStore

	if _, _, err := store.Get(context.Background(), 1); err == nil {
		t.Fatalf("expected error from uninitialized store")
	}

	if err := store.Put(context.Background(), 1, Session{}); err == nil {
		t.Fatalf("expected error from uninitialized store")
	}
}
