package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis as JSON documents with no TTL; like the
// in-memory store, only logout or a failed signup removes an entry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore configures a Redis client from a URL and verifies
// connectivity with a ping.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func redisKey(chatID int64) string {
	return redisKeyPrefix + strconv.FormatInt(chatID, 10)
}

// Get fetches and decodes the session for chatID.
func (r *RedisStore) Get(ctx context.Context, chatID int64) (Session, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("get session %d: %w", chatID, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, false, fmt.Errorf("decode session %d: %w", chatID, err)
	}

	return sess, true, nil
}

// Put stores the session under chatID with no expiry.
func (r *RedisStore) Put(ctx context.Context, chatID int64, sess Session) error {
	sess.ChatID = chatID
	sess.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", chatID, err)
	}

	if err := r.client.Set(ctx, redisKey(chatID), raw, 0).Err(); err != nil {
		return fmt.Errorf("put session %d: %w", chatID, err)
	}

	return nil
}

// Delete removes the session key.
func (r *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := r.client.Del(ctx, redisKey(chatID)).Err(); err != nil {
		return fmt.Errorf("delete session %d: %w", chatID, err)
	}

	return nil
}

// Count scans for session keys and returns how many exist.
func (r *RedisStore) Count(ctx context.Context) (int64, error) {
	var count int64

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}

	return count, nil
}

// Ping verifies Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (r *RedisStore) Close(context.Context) error {
	return r.client.Close()
}
