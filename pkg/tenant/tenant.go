package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is a Gram Panchayat: the unit of isolation in the portal.
type Tenant struct {
	ID uuid.UUID `json:"id"`
	// Code is the LGD (Local Government Directory) code, unique per panchayat.
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	District     string    `json:"district"`
	State        string    `json:"state"`
	ContactEmail string    `json:"contact_email"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store loads tenants. GetTenant returns ErrTenantNotFound when id is unknown.
type Store interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
}
