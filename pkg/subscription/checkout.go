package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/validator"
)

// CreateCheckout starts a hosted checkout for planID. The tenant must not
// already hold a subscription that grants access.
func (s *service) CreateCheckout(ctx context.Context, tenantID uuid.UUID, planID string, opts CheckoutOptions) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	v := NewValidationError()
	if tenantID == uuid.Nil {
		v.Add("tenant_id", "is required")
	}
	if planID == "" {
		v.Add("plan_id", "is required")
	}
	v.Check(
		validator.RequiredString("success_url", opts.SuccessURL),
		validator.ValidURL("success_url", opts.SuccessURL).When(opts.SuccessURL != ""),
		validator.RequiredString("cancel_url", opts.CancelURL),
		validator.ValidURL("cancel_url", opts.CancelURL).When(opts.CancelURL != ""),
	)
	if err := v.Err(); err != nil {
		return nil, err
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, ErrInactivePlan
	}
	if !plan.Purchasable() {
		return nil, errors.Join(ErrValidation, ErrPlanNotPurchasable)
	}

	current, err := s.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if current.ActiveAt(s.now()) {
		return nil, errors.Join(ErrConflict, ErrActiveSubscriptionExists)
	}

	session, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		TenantID:   tenantID,
		Plan:       plan,
		Email:      opts.Email,
		SuccessURL: opts.SuccessURL,
		CancelURL:  opts.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout session created",
		logger.TenantID(tenantID),
		logger.PlanID(plan.ID),
		logger.Provider(s.gateway.Name()),
	)
	return session, nil
}

// CustomerPortal returns a provider self-service link for the tenant's
// paid subscription.
func (s *service) CustomerPortal(ctx context.Context, tenantID uuid.UUID, returnURL string) (*PortalLink, error) {
	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	sub, err := s.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errors.Join(ErrNotFound, ErrNoActiveSubscription)
	}
	if sub.Provider != s.gateway.Name() || sub.ExternalID == "" {
		return nil, errors.Join(ErrNotFound, ErrNoCustomerReference)
	}
	return s.gateway.CustomerPortal(ctx, sub, returnURL)
}
