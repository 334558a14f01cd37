package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"playmatch/pkg/domain"
)

const sessionKeyPrefix = "playmatch:session:"

// RedisSessionStore keeps session records in Redis hashes. Keys outlive the
// session expiry by a grace period so an expired token can still be told
// apart from an unknown one.
type RedisSessionStore struct {
	client *redis.Client
	grace  time.Duration
	now    func() time.Time
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(addr, password string, grace time.Duration) *RedisSessionStore {
	return NewRedisSessionStoreWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}), grace)
}

// NewRedisSessionStoreWithClient wraps an existing client.
func NewRedisSessionStoreWithClient(client *redis.Client, grace time.Duration) *RedisSessionStore {
	if grace < 0 {
		grace = 0
	}
	return &RedisSessionStore{client: client, grace: grace, now: time.Now}
}

// SaveSession writes the session hash and sets its TTL.
func (s *RedisSessionStore) SaveSession(ctx context.Context, sess domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	key := sessionKeyPrefix + sess.Token
	ttl := sess.ExpiresAt.Sub(s.now()) + s.grace
	if ttl <= 0 {
		ttl = time.Second
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    sess.UserID,
		"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"created_at": sess.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession resolves a token to its session record.
func (s *RedisSessionStore) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	vals, err := s.client.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	if len(vals) == 0 || vals["user_id"] == "" {
		return domain.Session{}, false, nil
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, vals["expires_at"])
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session expiry: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, vals["created_at"])
	return domain.Session{
		Token:     token,
		UserID:    vals["user_id"],
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: createdAt.UTC(),
	}, true, nil
}

// DeleteSession removes a session record.
func (s *RedisSessionStore) DeleteSession(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// Close releases the Redis client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
