// Package kvstore is the per-session key-value store behind sign-in state and
// form drafts.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed entry names.
const (
	KeyUser         = "bluetrust_user"
	KeyUserType     = "bluetrust_user_type"
	KeyProjectDraft = "bluetrust_project_draft"
)

// SessionPrefix namespaces one hash per session id.
const SessionPrefix = "session:"

// DefaultTTL is the sliding lifetime of a session's entries.
const DefaultTTL = 24 * time.Hour

var ErrNotFound = errors.New("kvstore: key not found")

// Store is get/set/clear over one session's entries.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RedisStore keeps a session's entries in the hash session:<id>.
type RedisStore struct {
	Rdb       *redis.Client
	SessionID string
	TTL       time.Duration
}

// ForSession binds a store to sid.
func ForSession(rdb *redis.Client, sid string) *RedisStore {
	return &RedisStore{Rdb: rdb, SessionID: sid, TTL: DefaultTTL}
}

func (s *RedisStore) key() string {
	return SessionPrefix + s.SessionID
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Rdb.HGet(ctx, s.key(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	pipe := s.Rdb.TxPipeline()
	pipe.HSet(ctx, s.key(), key, value)
	if s.TTL > 0 {
		pipe.Expire(ctx, s.key(), s.TTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Rdb.HDel(ctx, s.key(), key).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.Rdb.Del(ctx, s.key()).Err()
}

// Touch extends the session lifetime; missing sessions are left alone.
func (s *RedisStore) Touch(ctx context.Context) error {
	if s.TTL <= 0 {
		return nil
	}
	return s.Rdb.Expire(ctx, s.key(), s.TTL).Err()
}

// Open connects to the Redis server at url and pings it.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("kvstore: REDIS_URL is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kvstore: parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("kvstore: ping: %w", err)
	}
	return rdb, nil
}
