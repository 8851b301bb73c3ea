package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/pg"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
)

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, district, state, contact_email, active, created_at
		FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Code, &t.Name, &t.District, &t.State, &t.ContactEmail, &t.Active, &t.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// TenantExists reports whether id names a registered tenant.
func (s *Store) TenantExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check tenant: %w", err)
	}
	return exists, nil
}

// ErrDuplicateTenantCode is returned by CreateTenant for a taken LGD code.
var ErrDuplicateTenantCode = errors.New("pgstore.duplicate_tenant_code")

// CreateTenant registers a Gram Panchayat.
func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := s.timestamp()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (id, code, name, district, state, contact_email, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Code, t.Name, t.District, t.State, t.ContactEmail, t.Active, now)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return errors.Join(ErrDuplicateTenantCode, err)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	t.CreatedAt = now
	return nil
}
