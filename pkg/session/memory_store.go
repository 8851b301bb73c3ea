package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. A positive cleanupInterval starts a
// goroutine that drops expired sessions; stop it with Close.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}
	if session.IsExpired(s.now()) {
		return ErrSessionExpired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrSessionExpired
	}
	return session.clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, session *Session) error {
	if session == nil || session.Token == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Token]; !ok {
		return ErrSessionNotFound
	}
	s.sessions[session.Token] = session.clone()
	return nil
}

func (s *MemoryStore) UpdateActivity(_ context.Context, token string, lastActivity time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastActivityAt = lastActivity
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) deleteExpired() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, token)
		}
	}
}
