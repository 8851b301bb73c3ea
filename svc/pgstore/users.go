package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/gpportal/pkg/pg"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/svc/auth"
)

const userColumns = `id, email, name, password_hash, role, tenant_id, active, created_at, updated_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u    auth.User
		hash string
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &hash, &role, &u.TenantID, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	r, err := rbac.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = r
	u.PasswordHash = []byte(hash)
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, auth.NormalizeEmail(email)))
}

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := s.timestamp()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, tenant_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		u.ID, auth.NormalizeEmail(u.Email), u.Name, string(u.PasswordHash), u.Role.String(), u.TenantID, u.Active, now)
	if err != nil {
		switch {
		case pg.IsDuplicateKeyError(err) && pg.ConstraintName(err) == constraintUserEmail:
			return auth.ErrEmailAlreadyExists
		case pg.IsForeignKeyViolationError(err):
			return errors.Join(auth.ErrInvalidUser, err)
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}
