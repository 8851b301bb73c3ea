package billing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/audit"
	"github.com/dmitrymomot/gpportal/pkg/binder"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/metrics"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

const maxAuditEvents = 100

// Handle returns the tenant-facing billing router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhook", handler.Wrap(s.webhook,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))

	r.Group(func(r chi.Router) {
		r.Use(s.guard.RequireAuth())
		r.Get("/status", handler.Wrap(s.status,
			handler.WithBinders[TenantQuery](binder.Query()),
			handler.WithErrorHandler[TenantQuery](s.errorHandler),
		))
		r.Get("/plans", handler.Wrap(s.activePlans,
			handler.WithErrorHandler[struct{}](s.errorHandler),
		))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.guard.RequireRole(rbac.GPAdmin))
		r.Post("/checkout", handler.Wrap(s.checkout,
			handler.WithBinders[CheckoutRequest](binder.JSON()),
			handler.WithErrorHandler[CheckoutRequest](s.errorHandler),
		))
		r.Post("/portal", handler.Wrap(s.portal,
			handler.WithErrorHandler[struct{}](s.errorHandler),
		))
	})

	return r
}

// Admin returns the SUPER_ADMIN router for plans and subscriptions.
func (s *Service) Admin() http.Handler {
	r := chi.NewRouter()
	r.Use(s.guard.RequireRole(rbac.SuperAdmin))

	r.Post("/subscriptions", handler.Wrap(s.assignPlan,
		handler.WithBinders[AssignPlanRequest](binder.JSON()),
		handler.WithErrorHandler[AssignPlanRequest](s.errorHandler),
	))
	r.Post("/subscriptions/{id}/cancel", handler.Wrap(s.cancelSubscription,
		handler.WithBinders[SubscriptionPath](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[SubscriptionPath](s.errorHandler),
	))

	r.Get("/plans", handler.Wrap(s.allPlans,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))
	r.Post("/plans", handler.Wrap(s.createPlan,
		handler.WithBinders[CreatePlanRequest](binder.JSON()),
		handler.WithErrorHandler[CreatePlanRequest](s.errorHandler),
	))
	r.Put("/plans/{id}/active", handler.Wrap(s.setPlanActive,
		handler.WithBinders[SetPlanActiveRequest](binder.Path(chi.URLParam), binder.JSON()),
		handler.WithErrorHandler[SetPlanActiveRequest](s.errorHandler),
	))

	r.Get("/tenants/{tenantID}/subscriptions", handler.Wrap(s.tenantSubscriptions,
		handler.WithBinders[TenantPath](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[TenantPath](s.errorHandler),
	))
	r.Get("/tenants/{tenantID}/payments", handler.Wrap(s.tenantPayments,
		handler.WithBinders[TenantPath](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[TenantPath](s.errorHandler),
	))
	r.Get("/tenants/{tenantID}/audit", handler.Wrap(s.tenantAudit,
		handler.WithBinders[AuditQuery](binder.Path(chi.URLParam), binder.Query()),
		handler.WithErrorHandler[AuditQuery](s.errorHandler),
	))

	return r
}

// TenantQuery lets SUPER_ADMIN read the status of any tenant.
type TenantQuery struct {
	TenantID *uuid.UUID `query:"tenant_id"`
}

type CheckoutRequest struct {
	PlanID string `json:"plan_id"`
	// Email prefills the provider checkout form.
	Email string `json:"email"`
}

type AssignPlanRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	PlanID   string    `json:"plan_id"`
}

type SubscriptionPath struct {
	ID uuid.UUID `path:"id"`
}

type TenantPath struct {
	TenantID uuid.UUID `path:"tenantID"`
}

// AuditQuery selects a tenant's audit trail, newest first.
type AuditQuery struct {
	TenantID uuid.UUID `path:"tenantID"`
	Action   string    `query:"action"`
	Limit    int       `query:"limit"`
}

// CreatePlanRequest carries a new plan. ExternalPriceID links it to a
// provider price and is only accepted here, never echoed back.
type CreatePlanRequest struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Price           subscription.Money     `json:"price"`
	Duration        int                    `json:"duration_months"`
	Features        []subscription.Feature `json:"features"`
	ExternalPriceID string                 `json:"external_price_id"`
	Active          *bool                  `json:"active"`
}

type SetPlanActiveRequest struct {
	ID     string `path:"id" json:"-"`
	Active bool   `json:"active"`
}

func (s *Service) webhook(ctx handler.Context, _ struct{}) handler.Response {
	if s.reconciler == nil {
		return handler.Error(ErrGatewayDisabled)
	}
	r := ctx.Request()

	payload, err := io.ReadAll(http.MaxBytesReader(ctx.ResponseWriter(), r.Body, s.cfg.MaxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return handler.Error(handler.HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_entity_too_large"})
		}
		return handler.Error(handler.ErrBadRequest.WithMessage("could not read request body"))
	}

	ev, err := s.reconciler.HandleWebhook(ctx, payload, r.Header.Get(s.reconciler.SignatureHeader()))
	s.recordWebhook(ev, err)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]bool{"received": true})
}

func (s *Service) recordWebhook(ev *subscription.Event, err error) {
	eventType := "unknown"
	if ev != nil && ev.ProviderType != "" {
		eventType = ev.ProviderType
	}

	outcome := metrics.OutcomeApplied
	switch {
	case errors.Is(err, subscription.ErrSignature):
		outcome = metrics.OutcomeRejected
	case err != nil:
		outcome = metrics.OutcomeFailed
	case ev == nil || ev.Type == "":
		outcome = metrics.OutcomeIgnored
	}
	s.metrics.WebhookEvent(s.reconciler.Provider(), eventType, outcome)
}

func (s *Service) status(ctx handler.Context, q TenantQuery) handler.Response {
	tenantID, err := s.resolveTenant(ctx, q.TenantID)
	if err != nil {
		return handler.Error(err)
	}
	view, err := s.subs.Status(ctx, tenantID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(view)
}

func (s *Service) activePlans(ctx handler.Context, _ struct{}) handler.Response {
	plans, err := s.subs.ListPlans(ctx, true)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(plans)
}

func (s *Service) checkout(ctx handler.Context, req CheckoutRequest) handler.Response {
	tenantID, err := s.resolveTenant(ctx, nil)
	if err != nil {
		return handler.Error(err)
	}
	if strings.TrimSpace(req.PlanID) == "" {
		v := subscription.NewValidationError()
		v.Add("plan_id", "is required")
		return handler.Error(v)
	}

	cs, err := s.subs.CreateCheckout(ctx, tenantID, req.PlanID, subscription.CheckoutOptions{
		Email:      strings.TrimSpace(req.Email),
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(cs)
}

func (s *Service) portal(ctx handler.Context, _ struct{}) handler.Response {
	tenantID, err := s.resolveTenant(ctx, nil)
	if err != nil {
		return handler.Error(err)
	}
	link, err := s.subs.CustomerPortal(ctx, tenantID, s.cfg.PortalReturnURL)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(link)
}

func (s *Service) assignPlan(ctx handler.Context, req AssignPlanRequest) handler.Response {
	v := subscription.NewValidationError()
	if req.TenantID == uuid.Nil {
		v.Add("tenant_id", "is required")
	}
	if strings.TrimSpace(req.PlanID) == "" {
		v.Add("plan_id", "is required")
	}
	if err := v.Err(); err != nil {
		return handler.Error(err)
	}

	sub, err := s.subs.AssignPlan(ctx, req.TenantID, req.PlanID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sub, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) cancelSubscription(ctx handler.Context, req SubscriptionPath) handler.Response {
	sub, err := s.subs.CancelSubscription(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sub)
}

func (s *Service) allPlans(ctx handler.Context, _ struct{}) handler.Response {
	plans, err := s.subs.ListPlans(ctx, false)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(plans)
}

func (s *Service) createPlan(ctx handler.Context, req CreatePlanRequest) handler.Response {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	plan, err := s.subs.CreatePlan(ctx, subscription.Plan{
		ID:              strings.TrimSpace(req.ID),
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Price:           req.Price,
		Duration:        req.Duration,
		Features:        req.Features,
		ExternalPriceID: strings.TrimSpace(req.ExternalPriceID),
		Active:          active,
	})
	if err != nil {
		return handler.Error(err)
	}
	s.recordPlanChange(ctx, "plan.created", plan)
	return handler.JSON(plan, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) setPlanActive(ctx handler.Context, req SetPlanActiveRequest) handler.Response {
	plan, err := s.subs.SetPlanActive(ctx, req.ID, req.Active)
	if err != nil {
		return handler.Error(err)
	}
	action := "plan.deactivated"
	if plan.Active {
		action = "plan.activated"
	}
	s.recordPlanChange(ctx, action, plan)
	return handler.JSON(plan)
}

func (s *Service) recordPlanChange(ctx context.Context, action string, plan *subscription.Plan) {
	if s.audit == nil {
		return
	}
	err := s.audit.Log(ctx, action,
		audit.WithResource("plan", plan.ID),
		audit.WithMetadata("price", plan.Price.String()),
		audit.WithMetadata("active", plan.Active),
	)
	if err != nil {
		s.logger.WarnContext(ctx, "audit event not recorded", logger.PlanID(plan.ID), logger.Error(err))
	}
}

func (s *Service) tenantSubscriptions(ctx handler.Context, req TenantPath) handler.Response {
	if err := s.checkTenant(ctx, req.TenantID); err != nil {
		return handler.Error(err)
	}
	subs, err := s.subs.ListSubscriptions(ctx, req.TenantID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(subs)
}

func (s *Service) tenantPayments(ctx handler.Context, req TenantPath) handler.Response {
	if s.payments == nil {
		return handler.Error(handler.ErrNotFound)
	}
	if err := s.checkTenant(ctx, req.TenantID); err != nil {
		return handler.Error(err)
	}
	payments, err := s.payments.ListPayments(ctx, req.TenantID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(payments)
}

func (s *Service) tenantAudit(ctx handler.Context, req AuditQuery) handler.Response {
	if s.auditEvents == nil {
		return handler.Error(handler.ErrNotFound)
	}
	if err := s.checkTenant(ctx, req.TenantID); err != nil {
		return handler.Error(err)
	}
	limit := req.Limit
	if limit <= 0 || limit > maxAuditEvents {
		limit = maxAuditEvents
	}
	events, err := s.auditEvents.ListEvents(ctx, audit.Criteria{
		TenantID: req.TenantID,
		Action:   strings.TrimSpace(req.Action),
		Limit:    limit,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(events)
}

func (s *Service) checkTenant(ctx handler.Context, id uuid.UUID) error {
	if s.tenants == nil {
		return nil
	}
	ok, err := s.tenants.TenantExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return subscription.ErrTenantNotFound
	}
	return nil
}

// resolveTenant returns the caller's tenant. SUPER_ADMIN has none and must
// name one explicitly.
func (s *Service) resolveTenant(ctx handler.Context, explicit *uuid.UUID) (uuid.UUID, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return uuid.Nil, handler.ErrUnauthorized
	}
	if sess.TenantID != nil {
		return *sess.TenantID, nil
	}
	if sess.Role == rbac.SuperAdmin && explicit != nil && *explicit != uuid.Nil {
		return *explicit, nil
	}
	return uuid.Nil, ErrTenantRequired
}
