package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage is an in-process Storage for tests and local development.
type MemoryStorage struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStorage) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *MemoryStorage) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := NormalizeEmail(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return ErrEmailAlreadyExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	c := *user
	c.Email = email
	s.byID[c.ID] = &c
	s.byEmail[email] = c.ID
	return nil
}
