package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/session"
)

// User is a portal account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash []byte     `json:"-"`
	Role         rbac.Role  `json:"role"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Identity returns the session identity for u.
func (u *User) Identity() session.Identity {
	id := session.Identity{UserID: u.ID, Role: u.Role}
	if u.TenantID != nil {
		t := *u.TenantID
		id.TenantID = &t
	}
	return id
}

// Validate checks that the role and tenant agree: Gram Panchayat roles
// belong to exactly one tenant, SUPER_ADMIN to none.
func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: invalid role", ErrInvalidUser)
	}
	if u.Role.RequiresTenant() != (u.TenantID != nil) {
		return fmt.Errorf("%w: role %s does not match tenant assignment", ErrInvalidUser, u.Role)
	}
	return nil
}

// Storage persists users. Lookups return ErrUserNotFound for unknown users;
// CreateUser returns ErrEmailAlreadyExists for a taken email.
type Storage interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
