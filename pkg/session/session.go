package session

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/rbac"
)

// Identity is who a session belongs to.
type Identity struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     rbac.Role
}

// Session is an authenticated user session.
type Session struct {
	ID             uuid.UUID  `json:"id"`
	Token          string     `json:"token"`
	UserID         uuid.UUID  `json:"user_id"`
	TenantID       *uuid.UUID `json:"tenant_id,omitempty"`
	Role           rbac.Role  `json:"role"`
	Fingerprint    string     `json:"fingerprint,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newSession(token string, id Identity, fingerprint string, now, expiresAt time.Time) *Session {
	s := &Session{
		ID:             uuid.New(),
		Token:          token,
		UserID:         id.UserID,
		Role:           id.Role,
		Fingerprint:    fingerprint,
		ExpiresAt:      expiresAt,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if id.TenantID != nil {
		t := *id.TenantID
		s.TenantID = &t
	}
	return s
}

// Identity returns the identity the session was issued for.
func (s *Session) Identity() Identity {
	return Identity{UserID: s.UserID, TenantID: s.TenantID, Role: s.Role}
}

// IsExpired reports whether the session expired at or before now.
func (s *Session) IsExpired(now time.Time) bool {
	return s != nil && !now.Before(s.ExpiresAt)
}

// Valid reports whether the identity is consistent: a known role, and a
// tenant exactly when the role requires one.
func (s *Session) Valid() bool {
	if s == nil || s.Token == "" || s.UserID == uuid.Nil || !s.Role.Valid() {
		return false
	}
	return s.Role.RequiresTenant() == (s.TenantID != nil)
}

// ValidateFingerprint compares fingerprints in constant time. Sessions
// created without a fingerprint accept any.
func (s *Session) ValidateFingerprint(fingerprint string) bool {
	if s == nil || s.Fingerprint == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(s.Fingerprint), []byte(fingerprint)) == 1
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.TenantID != nil {
		t := *s.TenantID
		c.TenantID = &t
	}
	return &c
}
