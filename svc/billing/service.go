package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/audit"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/svc/access"
)

// WebhookRecorder counts webhook outcomes. *metrics.Metrics implements it.
type WebhookRecorder interface {
	WebhookEvent(provider, eventType, outcome string)
}

// PaymentLister reads the payment ledger of a tenant.
type PaymentLister interface {
	ListPayments(ctx context.Context, tenantID uuid.UUID) ([]subscription.Payment, error)
}

// AuditLister reads the audit trail. *pgstore.Store and
// *audit.MemoryStorage implement it.
type AuditLister interface {
	ListEvents(ctx context.Context, c audit.Criteria) ([]audit.Event, error)
}

// TenantChecker answers tenant existence for the admin history routes.
type TenantChecker interface {
	TenantExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Option configures a Service.
type Option func(*Service)

// WithReconciler enables the webhook endpoint.
func WithReconciler(r *subscription.Reconciler) Option {
	return func(s *Service) {
		s.reconciler = r
	}
}

func WithPayments(p PaymentLister) Option {
	return func(s *Service) {
		s.payments = p
	}
}

func WithTenants(t TenantChecker) Option {
	return func(s *Service) {
		s.tenants = t
	}
}

// WithAudit records plan catalog edits to trail and serves events from
// the admin audit endpoint.
func WithAudit(trail *audit.Logger, events AuditLister) Option {
	return func(s *Service) {
		s.audit = trail
		s.auditEvents = events
	}
}

func WithMetrics(m WebhookRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithErrorHandler replaces the error handler of the HTTP endpoints.
func WithErrorHandler(h handler.ErrorHandler) Option {
	return func(s *Service) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

type noopRecorder struct{}

func (noopRecorder) WebhookEvent(string, string, string) {}

// Service serves the billing and subscription administration endpoints.
type Service struct {
	subs         subscription.Service
	guard        *access.Guard
	cfg          Config
	reconciler   *subscription.Reconciler
	payments     PaymentLister
	tenants      TenantChecker
	metrics      WebhookRecorder
	audit        *audit.Logger
	auditEvents  AuditLister
	logger       *slog.Logger
	errorHandler handler.ErrorHandler
}

// NewService panics if subs or guard is nil.
func NewService(subs subscription.Service, guard *access.Guard, cfg Config, opts ...Option) *Service {
	if subs == nil || guard == nil {
		panic("billing: subscription service and access guard are required")
	}
	if cfg.MaxWebhookBytes <= 0 {
		cfg.MaxWebhookBytes = 64 << 10
	}
	s := &Service{
		subs:    subs,
		guard:   guard,
		cfg:     cfg,
		metrics: noopRecorder{},
		logger:  logger.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.errorHandler == nil {
		s.errorHandler = handler.NewErrorHandler(s.logger, ErrorMapper)
	}
	return s
}
