package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/validator"
)

// PasswordOption configures an Authenticator.
type PasswordOption func(*Authenticator)

// WithBcryptCost sets the bcrypt cost for new password hashes.
func WithBcryptCost(cost int) PasswordOption {
	return func(a *Authenticator) {
		a.cost = cost
	}
}

// WithMinPasswordLength sets the shortest accepted password.
func WithMinPasswordLength(n int) PasswordOption {
	return func(a *Authenticator) {
		a.policy.MinLength = n
	}
}

// WithPasswordPolicy replaces the password policy for new users. MaxLength
// is capped at bcrypt's 72 byte input limit.
func WithPasswordPolicy(p validator.PasswordPolicy) PasswordOption {
	return func(a *Authenticator) {
		if p.MaxLength <= 0 || p.MaxLength > 72 {
			p.MaxLength = 72
		}
		a.policy = p
	}
}

func WithPasswordLogger(l *slog.Logger) PasswordOption {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithPasswordClock(now func() time.Time) PasswordOption {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// Authenticator verifies email and password credentials.
type Authenticator struct {
	storage Storage
	cost    int
	policy  validator.PasswordPolicy
	logger  *slog.Logger
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthenticator panics if storage is nil.
func NewAuthenticator(storage Storage, opts ...PasswordOption) *Authenticator {
	if storage == nil {
		panic("auth: storage is required")
	}
	a := &Authenticator{
		storage: storage,
		cost:    bcrypt.DefaultCost,
		policy:  validator.DefaultPasswordPolicy(),
		logger:  logger.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate returns the active user matching the credentials.
// Unknown emails, wrong passwords and deactivated accounts all yield
// ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Keep the response time of unknown emails close to known ones.
			_ = bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		a.logger.InfoContext(ctx, "login attempt for deactivated user",
			logger.UserID(user.ID),
			logger.Component("auth"),
		)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// NewUser describes an account to create.
type NewUser struct {
	Email    string
	Name     string
	Password string
	Role     rbac.Role
	TenantID *uuid.UUID
}

// CreateUser hashes the password and stores a new active user. A malformed
// email yields ErrInvalidUser and a password outside the policy
// ErrWeakPassword, both joined with validator.ValidationErrors.
func (a *Authenticator) CreateUser(ctx context.Context, params NewUser) (*User, error) {
	email := NormalizeEmail(params.Email)
	if err := validator.Apply(
		validator.ValidEmail("email", email),
		validator.StrongPassword("password", params.Password, a.policy),
		validator.NotCommonPassword("password", params.Password),
	); err != nil {
		ve := validator.ExtractValidationErrors(err)
		errs := []error{err}
		if ve.Has("email") {
			errs = append(errs, ErrInvalidUser)
		}
		if ve.Has("password") {
			errs = append(errs, ErrWeakPassword)
		}
		return nil, errors.Join(errs...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := a.now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         params.Name,
		PasswordHash: hash,
		Role:         params.Role,
		TenantID:     params.TenantID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureUser creates the user unless the email is already registered.
// It reports whether a user was created.
func (a *Authenticator) EnsureUser(ctx context.Context, params NewUser) (bool, error) {
	_, err := a.storage.GetUserByEmail(ctx, NormalizeEmail(params.Email))
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrUserNotFound):
		return false, fmt.Errorf("get user: %w", err)
	}

	if _, err := a.CreateUser(ctx, params); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *Authenticator) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gpportal-dummy-password"), a.cost)
	})
	return a.dummyHash
}
