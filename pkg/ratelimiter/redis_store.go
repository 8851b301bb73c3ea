package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares windows between replicas. Each window is a counter key
// that expires when the window ends.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces counter keys. Defaults to "rl:".
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore panics if client is nil.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("ratelimiter: redis client is required")
	}
	s := &RedisStore{client: client, prefix: "rl:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Hit(ctx context.Context, key string, d time.Duration) (int, time.Time, error) {
	k := s.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		// first hit of the window, or a counter left without expiry
		if err := s.client.PExpire(ctx, k, d).Err(); err != nil {
			return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
		}
		remaining = d
	}
	return int(incr.Val()), time.Now().Add(remaining), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
