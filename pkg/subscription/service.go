package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// Service defines subscription management and feature gating.
type Service interface {
	// Subscription store
	GetActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	CachedActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]Subscription, error)
	AssignPlan(ctx context.Context, tenantID uuid.UUID, planID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)
	UpsertFromPayment(ctx context.Context, params UpsertParams) (*Subscription, error)
	Status(ctx context.Context, tenantID uuid.UUID) (*StatusView, error)

	// Feature gating
	HasFeature(ctx context.Context, tenantID uuid.UUID, feature Feature) bool
	RequireFeature(ctx context.Context, tenantID uuid.UUID, feature Feature) error
	Invalidate(tenantID uuid.UUID)

	// Plan registry
	ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	GetPlanByExternalPriceID(ctx context.Context, priceID string) (*Plan, error)
	CreatePlan(ctx context.Context, plan Plan) (*Plan, error)
	SetPlanActive(ctx context.Context, id string, active bool) (*Plan, error)
	SyncCatalog(ctx context.Context, plans []Plan) (*SyncReport, error)

	// Billing provider interactions
	CreateCheckout(ctx context.Context, tenantID uuid.UUID, planID string, opts CheckoutOptions) (*CheckoutSession, error)
	CustomerPortal(ctx context.Context, tenantID uuid.UUID, returnURL string) (*PortalLink, error)
}

// CheckoutOptions carries caller-provided checkout parameters.
type CheckoutOptions struct {
	Email      string
	SuccessURL string
	CancelURL  string
}

// ChangeKind names a subscription mutation.
type ChangeKind string

const (
	ChangeAssigned   ChangeKind = "assigned"
	ChangeCancelled  ChangeKind = "cancelled"
	ChangeExpired    ChangeKind = "expired"
	ChangeReconciled ChangeKind = "reconciled"
)

// ChangeHook observes subscription mutations. It must not block.
type ChangeHook func(ctx context.Context, kind ChangeKind, sub *Subscription)

type service struct {
	plans   PlanStore
	subs    SubscriptionStore
	tenants TenantDirectory
	gateway Gateway
	logger  *slog.Logger
	now     func() time.Time
	hooks   []ChangeHook

	cacheCapacity int
	cacheTTL      time.Duration
	cache         *featureCache
}

// NewService creates a Service.
// Panics if any store is nil to fail fast during initialization.
func NewService(plans PlanStore, subs SubscriptionStore, tenants TenantDirectory, opts ...ServiceOption) Service {
	if plans == nil {
		panic("subscription: PlanStore is required")
	}
	if subs == nil {
		panic("subscription: SubscriptionStore is required")
	}
	if tenants == nil {
		panic("subscription: TenantDirectory is required")
	}

	s := &service{
		plans:         plans,
		subs:          subs,
		tenants:       tenants,
		logger:        logger.Noop(),
		now:           time.Now,
		cacheCapacity: 1024,
		cacheTTL:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newFeatureCache(s.cacheCapacity, s.cacheTTL, s.now)

	return s
}

// GetActiveSubscription returns the tenant's ACTIVE or TRIALING subscription
// with its plan attached, or nil when there is none. A subscription whose
// period already ended is still returned; gate decisions reject it.
func (s *service) GetActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	sub, err := s.subs.GetActiveByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active subscription: %w", err)
	}
	if err := s.attachPlan(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CachedActiveSubscription is GetActiveSubscription behind the tenant cache.
func (s *service) CachedActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	if sub, ok := s.cache.get(tenantID); ok {
		return sub, nil
	}
	sub, err := s.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.cache.put(tenantID, sub)
	return sub, nil
}

func (s *service) GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := s.subs.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachPlan(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) GetByExternalID(ctx context.Context, provider, externalID string) (*Subscription, error) {
	if externalID == "" {
		return nil, validationFailed("external_id", "is required")
	}
	return s.subs.GetByExternalID(ctx, provider, externalID)
}

func (s *service) ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]Subscription, error) {
	return s.subs.ListSubscriptions(ctx, tenantID)
}

// AssignPlan creates an ACTIVE subscription for the tenant. A live
// subscription whose period has ended is marked EXPIRED first so that it
// does not block the assignment.
func (s *service) AssignPlan(ctx context.Context, tenantID uuid.UUID, planID string) (*Subscription, error) {
	v := NewValidationError()
	if tenantID == uuid.Nil {
		v.Add("tenant_id", "is required")
	}
	if planID == "" {
		v.Add("plan_id", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	exists, err := s.tenants.TenantExists(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("check tenant: %w", err)
	}
	if !exists {
		return nil, errors.Join(ErrNotFound, ErrTenantNotFound)
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, ErrInactivePlan
	}

	now := s.now()
	current, err := s.subs.GetActiveByTenant(ctx, tenantID)
	switch {
	case err == nil && current.Lapsed(now):
		next, err := NextStatus(ctx, current.Status, TriggerExpire, StatusExpired)
		if err != nil {
			return nil, err
		}
		expired, err := s.subs.UpdateStatus(ctx, current.ID, next, now)
		if err != nil {
			return nil, fmt.Errorf("expire lapsed subscription: %w", err)
		}
		s.notify(ctx, ChangeExpired, expired)
	case err == nil:
		return nil, errors.Join(ErrConflict, ErrActiveSubscriptionExists)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("get active subscription: %w", err)
	}

	sub := &Subscription{
		ID:               uuid.New(),
		TenantID:         tenantID,
		PlanID:           plan.ID,
		Status:           StatusActive,
		CurrentPeriodEnd: plan.PeriodEnd(now),
		Provider:         ProviderManual,
	}
	if err := s.subs.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	sub.Plan = plan

	s.logger.InfoContext(ctx, "plan assigned",
		logger.TenantID(tenantID),
		logger.PlanID(plan.ID),
		logger.SubscriptionID(sub.ID),
	)
	s.notify(ctx, ChangeAssigned, sub)

	return sub, nil
}

// CancelSubscription marks the subscription CANCELLED. A subscription that
// is already CANCELLED or EXPIRED is returned unchanged.
func (s *service) CancelSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := s.subs.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.Status.Terminal() {
		next, err := NextStatus(ctx, sub.Status, TriggerCancel, StatusCancelled)
		if err != nil {
			return nil, err
		}
		sub, err = s.subs.UpdateStatus(ctx, id, next, s.now())
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "subscription cancelled",
			logger.TenantID(sub.TenantID),
			logger.SubscriptionID(sub.ID),
		)
		s.notify(ctx, ChangeCancelled, sub)
	}
	if err := s.attachPlan(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpsertFromPayment applies provider-confirmed state. The store refuses to
// move a CANCELLED or EXPIRED row and returns ErrInvalidTransition.
func (s *service) UpsertFromPayment(ctx context.Context, params UpsertParams) (*Subscription, error) {
	v := NewValidationError()
	if params.TenantID == uuid.Nil {
		v.Add("tenant_id", "is required")
	}
	if params.PlanID == "" {
		v.Add("plan_id", "is required")
	}
	if params.ExternalID == "" {
		v.Add("external_id", "is required")
	}
	if !params.Status.Valid() {
		v.Add("status", "is invalid")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	sub, err := s.subs.UpsertFromPayment(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := s.attachPlan(ctx, sub); err != nil {
		return nil, err
	}
	s.notify(ctx, ChangeReconciled, sub)
	return sub, nil
}

// Status builds the status query view from the authoritative store.
func (s *service) Status(ctx context.Context, tenantID uuid.UUID) (*StatusView, error) {
	sub, err := s.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	view := &StatusView{Features: AllowedFeatures(sub, now)}
	if sub.ActiveAt(now) && sub.Plan != nil {
		name := sub.Plan.Name
		expires := sub.CurrentPeriodEnd
		view.HasActiveSubscription = true
		view.PlanName = &name
		view.ExpiresAt = &expires
	}
	return view, nil
}

// HasFeature answers from the tenant cache and fails closed on errors.
func (s *service) HasFeature(ctx context.Context, tenantID uuid.UUID, feature Feature) bool {
	sub, err := s.CachedActiveSubscription(ctx, tenantID)
	if err != nil {
		s.logger.ErrorContext(ctx, "feature check failed",
			logger.TenantID(tenantID),
			logger.Feature(string(feature)),
			logger.Error(err),
		)
		return false
	}
	return IsFeatureAllowedAt(sub, feature, s.now())
}

// RequireFeature checks the feature against the store, bypassing the cache.
func (s *service) RequireFeature(ctx context.Context, tenantID uuid.UUID, feature Feature) error {
	sub, err := s.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		return err
	}
	now := s.now()
	if !sub.ActiveAt(now) {
		return ErrNoActiveSubscription
	}
	if !IsFeatureAllowedAt(sub, feature, now) {
		return ErrFeatureNotAllowed
	}
	return nil
}

func (s *service) Invalidate(tenantID uuid.UUID) {
	s.cache.invalidate(tenantID)
}

func (s *service) attachPlan(ctx context.Context, sub *Subscription) error {
	if sub == nil || sub.Plan != nil {
		return nil
	}
	plan, err := s.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("attach plan %q: %w", sub.PlanID, err)
	}
	sub.Plan = plan
	return nil
}

func (s *service) notify(ctx context.Context, kind ChangeKind, sub *Subscription) {
	if sub == nil {
		return
	}
	s.cache.invalidate(sub.TenantID)
	for _, hook := range s.hooks {
		hook(ctx, kind, sub)
	}
}
