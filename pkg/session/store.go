package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions keyed by token.
type Store interface {
	Create(ctx context.Context, session *Session) error
	// Get returns ErrSessionNotFound or ErrSessionExpired when the token
	// cannot be used.
	Get(ctx context.Context, token string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	UpdateActivity(ctx context.Context, token string, lastActivity time.Time) error
	Delete(ctx context.Context, token string) error
	// DeleteByUserID removes every session of the user.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
