package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "perimeter:session:"

// RedisStore is a Redis-backed session store for multi-node deployments.
// Expiry is enforced through key TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Create stores a new session with a fresh ID
func (r *RedisStore) Create(ctx context.Context, seed Session) (*Session, error) {
	now := time.Now()
	sess := seed
	sess.ID = uuid.NewString()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(r.ttl)
	if err := r.set(ctx, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Get returns the session for the ID, or ErrNotFound
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Invalidate removes the session
func (r *RedisStore) Invalidate(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// Rotate drops the old session and stores the seed under a fresh ID
func (r *RedisStore) Rotate(ctx context.Context, id string, seed Session) (*Session, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := r.Invalidate(ctx, id); err != nil {
		return nil, err
	}
	return r.Create(ctx, seed)
}

// PurgeExpired is a no-op for Redis; key TTLs handle expiry
func (r *RedisStore) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}

// Ping checks the Redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) set(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := r.client.Set(ctx, redisKeyPrefix+sess.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}
