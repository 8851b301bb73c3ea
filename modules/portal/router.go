package portal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
	"github.com/dmitrymomot/gpportal/svc/access"
)

type Mountable interface {
	Handle() http.Handler
}

// SubscriptionSource loads a tenant's live subscription, or nil when it has none.
type SubscriptionSource interface {
	CachedActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error)
}

// TenantLookup loads a tenant by id. *tenant.Directory implements it.
type TenantLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// RouterOptions configures the portal module. Guard, Subscriptions and
// Tenants are required. Handlers maps a section path (for example
// "/certificates") to the service mounted behind its gate; sections without
// one serve an index describing the section.
type RouterOptions struct {
	Guard         *access.Guard
	Subscriptions SubscriptionSource
	Tenants       TenantLookup
	Handlers      map[string]Mountable

	Logger       *slog.Logger
	ErrorHandler handler.ErrorHandler
	// Now defaults to time.Now.
	Now func() time.Time
}

// Router creates the portal router: the dashboard at "/" for every signed-in
// user, and one gated subtree per section.
//
// Example:
//
//	r.Mount("/", portal.Router(portal.RouterOptions{
//	    Guard:         guard,
//	    Subscriptions: subs,
//	    Tenants:       tenants,
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Guard == nil || opts.Subscriptions == nil || opts.Tenants == nil {
		panic("portal: guard, subscription source and tenant lookup are required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = handler.NewErrorHandler(opts.Logger, ErrorMapper)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	d := &dashboard{
		subs:    opts.Subscriptions,
		tenants: opts.Tenants,
		now:     opts.Now,
	}

	r := chi.NewRouter()

	r.With(opts.Guard.RequireAuth()).Get("/", handler.Wrap(d.show,
		handler.WithErrorHandler[struct{}](opts.ErrorHandler),
	))

	for _, sec := range sections {
		r.Route(sec.Path, func(sr chi.Router) {
			sr.Use(opts.Guard.RequireFeature(sec.Feature, sec.Roles...))
			if h, ok := opts.Handlers[sec.Path]; ok && h != nil {
				sr.Mount("/", h.Handle())
				return
			}
			sr.Get("/", handler.Wrap(sectionIndex(sec),
				handler.WithErrorHandler[struct{}](opts.ErrorHandler),
			))
		})
	}

	return r
}

// ErrorMapper maps portal errors to HTTP errors.
func ErrorMapper(err error) (handler.HTTPError, bool) {
	if errors.Is(err, tenant.ErrTenantNotFound) {
		return handler.HTTPError{Code: http.StatusForbidden, Key: "tenant_unavailable", Message: "Gram Panchayat is not available"}, true
	}
	return handler.HTTPError{}, false
}
