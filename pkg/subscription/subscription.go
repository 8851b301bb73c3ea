package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription binds a tenant to a plan for a billing term.
type Subscription struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           uuid.UUID  `json:"tenant_id"`
	PlanID             string     `json:"plan_id"`
	Plan               *Plan      `json:"plan,omitempty"`
	Status             Status     `json:"status"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	Provider           string     `json:"provider"`
	ExternalID         string     `json:"external_id,omitempty"`
	ExternalCustomerID string     `json:"-"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	LastEventAt        *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the subscription grants access at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status.Live() && s.CurrentPeriodEnd.After(now)
}

// Lapsed reports whether the subscription is stored as live but its
// period has already ended.
func (s *Subscription) Lapsed(now time.Time) bool {
	return s != nil && s.Status.Live() && !s.CurrentPeriodEnd.After(now)
}

// StaleEvent reports whether an event that occurred at eventAt is older than
// the newest event already applied to the subscription.
func (s *Subscription) StaleEvent(eventAt time.Time) bool {
	if s == nil || s.LastEventAt == nil || eventAt.IsZero() {
		return false
	}
	return eventAt.Before(*s.LastEventAt)
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.Plan = s.Plan.clone()
	if s.CancelledAt != nil {
		t := *s.CancelledAt
		c.CancelledAt = &t
	}
	if s.LastEventAt != nil {
		t := *s.LastEventAt
		c.LastEventAt = &t
	}
	return &c
}

// UpsertParams carries the provider-confirmed state of a subscription.
type UpsertParams struct {
	TenantID         uuid.UUID
	PlanID           string
	Provider         string
	ExternalID       string
	CustomerID       string
	Status           Status
	CurrentPeriodEnd time.Time
	EventAt          time.Time
}

// Payment is an append-only ledger entry for a confirmed charge.
type Payment struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	Amount         Money      `json:"amount"`
	Provider       string     `json:"provider"`
	ExternalRef    string     `json:"external_ref"`
	PaidAt         time.Time  `json:"paid_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// StatusView is the read model behind the billing status query.
type StatusView struct {
	HasActiveSubscription bool       `json:"hasActiveSubscription"`
	PlanName              *string    `json:"planName"`
	ExpiresAt             *time.Time `json:"expiresAt"`
	Features              []Feature  `json:"features"`
}
