package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanStore persists the plan catalog.
type PlanStore interface {
	GetPlan(ctx context.Context, id string) (*Plan, error)
	GetPlanByExternalPriceID(ctx context.Context, priceID string) (*Plan, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	CreatePlan(ctx context.Context, plan *Plan) error
	UpdatePlan(ctx context.Context, plan *Plan) error
	SetPlanActive(ctx context.Context, id string, active bool) error
	// PlanInUse reports whether a live subscription references the plan.
	PlanInUse(ctx context.Context, id string) (bool, error)
}

// SubscriptionStore persists subscriptions. Implementations must guarantee
// that a tenant has at most one subscription with a live status and that
// (provider, external id) is unique.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)
	// GetActiveByTenant returns the tenant's ACTIVE or TRIALING subscription
	// or ErrNotFound.
	GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]Subscription, error)
	// CreateSubscription fails with ErrConflict when the tenant already
	// has a live subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error
	// UpdateStatus sets status and returns the updated row. Moving to
	// CANCELLED stamps CancelledAt with at.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) (*Subscription, error)
	// UpsertFromPayment updates the row keyed by (provider, external id) or,
	// when absent, supersedes the tenant's live subscription and inserts a
	// new one. Events older than the row's LastEventAt leave it unchanged.
	UpsertFromPayment(ctx context.Context, params UpsertParams) (*Subscription, error)
}

// PaymentStore is the append-only payment ledger.
type PaymentStore interface {
	// RecordPayment inserts p unless (provider, external ref) is already
	// recorded. It reports whether a row was inserted.
	RecordPayment(ctx context.Context, p *Payment) (bool, error)
	ListPayments(ctx context.Context, tenantID uuid.UUID) ([]Payment, error)
}

// EventStore records provider events that were reconciled successfully.
type EventStore interface {
	IsProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string, eventType EventType, at time.Time) error
}

// TenantDirectory answers tenant existence for plan assignment.
type TenantDirectory interface {
	TenantExists(ctx context.Context, id uuid.UUID) (bool, error)
}
