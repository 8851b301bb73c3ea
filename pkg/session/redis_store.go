package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as JSON with a TTL matching the
// session expiry. A per-user set indexes tokens for DeleteByUserID.
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	indexTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the key prefix. Default "session:".
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithIndexTTL sets the lifetime of the per-user token index. It should be
// at least the maximum session lifetime. Default 30 days.
func WithIndexTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.indexTTL = ttl
		}
	}
}

// NewRedisStore creates a RedisStore.
// Panics if client is nil.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("session: redis client is required")
	}
	s := &RedisStore{
		client:   client,
		prefix:   "session:",
		indexTTL: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(token string) string {
	return s.prefix + "t:" + token
}

func (s *RedisStore) userKey(userID uuid.UUID) string {
	return s.prefix + "u:" + userID.String()
}

func (s *RedisStore) Create(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Join(ErrInvalidSession, err)
	}

	userKey := s.userKey(session.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(session.Token), data, ttl)
		pipe.SAdd(ctx, userKey, session.Token)
		pipe.Expire(ctx, userKey, s.indexTTL)
		return nil
	})
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("create session: %w", err))
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Join(ErrStore, fmt.Errorf("get session: %w", err))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if session.IsExpired(time.Now()) {
		_ = s.Delete(ctx, token)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *RedisStore) Update(ctx context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}
	return s.replace(ctx, session)
}

func (s *RedisStore) UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error {
	session, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	session.LastActivityAt = lastActivity
	return s.replace(ctx, session)
}

// replace overwrites an existing session only.
func (s *RedisStore) replace(ctx context.Context, session *Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		_ = s.Delete(ctx, session.Token)
		return ErrSessionExpired
	}
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Join(ErrInvalidSession, err)
	}
	ok, err := s.client.SetXX(ctx, s.key(session.Token), data, ttl).Result()
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("update session: %w", err))
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("delete session: %w", err))
	}

	var session Session
	_ = json.Unmarshal(data, &session)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(token))
		if session.UserID != uuid.Nil {
			pipe.SRem(ctx, s.userKey(session.UserID), token)
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("delete session: %w", err))
	}
	return nil
}

func (s *RedisStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	userKey := s.userKey(userID)
	tokens, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("list user sessions: %w", err))
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, s.key(token))
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Join(ErrStore, fmt.Errorf("delete user sessions: %w", err))
	}
	return nil
}
