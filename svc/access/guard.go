package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/metrics"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

// SubscriptionSource loads a tenant's live subscription, or nil when it has
// none. subscription.Service implements it.
type SubscriptionSource interface {
	// CachedActiveSubscription may serve an entry up to the cache TTL old.
	CachedActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error)
	// GetActiveSubscription always reads the store.
	GetActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error)
}

type lookupFunc func(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error)

// Rule restricts a route. An empty Roles admits every role; an empty
// Feature skips the subscription check.
type Rule struct {
	Roles   []rbac.Role
	Feature subscription.Feature
}

// Guard enforces Rules.
type Guard struct {
	subs       SubscriptionSource
	loginURL   string
	billingURL string
	logger     *slog.Logger
	metrics    Recorder
	now        func() time.Time
}

// New panics if subs is nil.
func New(subs SubscriptionSource, opts ...Option) *Guard {
	if subs == nil {
		panic("access: subscription source is required")
	}
	g := &Guard{
		subs:       subs,
		loginURL:   "/login",
		billingURL: "/billing",
		logger:     logger.Noop(),
		metrics:    noopRecorder{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireAuth admits any signed-in user.
func (g *Guard) RequireAuth() func(http.Handler) http.Handler {
	return g.Require(Rule{})
}

// RequireRole admits the listed roles and SUPER_ADMIN.
func (g *Guard) RequireRole(roles ...rbac.Role) func(http.Handler) http.Handler {
	return g.Require(Rule{Roles: roles})
}

// RequireFeature admits Gram Panchayat users whose plan includes feature,
// restricted to roles when given, and SUPER_ADMIN.
func (g *Guard) RequireFeature(feature subscription.Feature, roles ...rbac.Role) func(http.Handler) http.Handler {
	return g.Require(Rule{Roles: roles, Feature: feature})
}

// Require returns middleware enforcing rule.
func (g *Guard) Require(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			check := g.Check
			if !safeMethod(r.Method) {
				check = g.CheckStrict
			}
			ctx, err := check(r.Context(), rule)
			if err != nil {
				g.deny(w, r, rule, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Check applies rule to the session in ctx and returns ctx enriched with
// the caller's role and, for gated routes, the subscription. The
// subscription comes from the cache.
func (g *Guard) Check(ctx context.Context, rule Rule) (context.Context, error) {
	return g.check(ctx, rule, g.subs.CachedActiveSubscription)
}

// CheckStrict is Check with the subscription read from the store. Require
// uses it for requests that change state, so a cancellation takes effect
// on writes without waiting for the cache to expire.
func (g *Guard) CheckStrict(ctx context.Context, rule Rule) (context.Context, error) {
	return g.check(ctx, rule, g.subs.GetActiveSubscription)
}

func (g *Guard) check(ctx context.Context, rule Rule, lookup lookupFunc) (context.Context, error) {
	sess, ok := session.FromContext(ctx)
	if !ok || !sess.Role.Valid() {
		return ctx, ErrUnauthenticated
	}
	role := sess.Role
	ctx = rbac.WithRole(ctx, role)

	if !role.Satisfies(rule.Roles...) {
		return ctx, ErrForbidden
	}

	if rule.Feature == "" {
		return ctx, nil
	}

	if role.BypassesSubscription() {
		g.metrics.GateDecision(string(rule.Feature), metrics.DecisionBypass)
		return ctx, nil
	}

	if sess.TenantID == nil {
		return ctx, ErrMissingTenant
	}

	sub, err := lookup(ctx, *sess.TenantID)
	if err != nil {
		return ctx, err
	}

	now := g.now()
	if !sub.ActiveAt(now) {
		g.metrics.GateDecision(string(rule.Feature), metrics.DecisionNoSubscription)
		return ctx, ErrSubscriptionRequired
	}
	if !subscription.IsFeatureAllowedAt(sub, rule.Feature, now) {
		g.metrics.GateDecision(string(rule.Feature), metrics.DecisionNotInPlan)
		return ctx, ErrFeatureNotInPlan
	}

	g.metrics.GateDecision(string(rule.Feature), metrics.DecisionAllowed)
	return subscription.WithSubscription(ctx, sub), nil
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, rule Rule, err error) {
	ctx := r.Context()
	browser := wantsHTML(r)

	switch {
	case errors.Is(err, ErrUnauthenticated):
		if browser {
			http.Redirect(w, r, g.loginURL+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		g.render(w, r, handler.ErrUnauthorized)

	case errors.Is(err, ErrSubscriptionRequired):
		if browser {
			http.Redirect(w, r, g.billingURL, http.StatusSeeOther)
			return
		}
		g.render(w, r, handler.HTTPError{
			Code:    http.StatusPaymentRequired,
			Key:     "subscription_required",
			Message: "An active subscription is required",
		})

	case errors.Is(err, ErrFeatureNotInPlan):
		g.render(w, r, handler.HTTPError{
			Code:    http.StatusForbidden,
			Key:     "feature_not_in_plan",
			Message: "Your plan does not include this feature",
		})

	case errors.Is(err, ErrForbidden), errors.Is(err, ErrMissingTenant):
		g.logger.WarnContext(ctx, "access denied",
			logger.Error(err),
			logger.Feature(string(rule.Feature)),
		)
		g.render(w, r, handler.ErrForbidden)

	default:
		g.logger.ErrorContext(ctx, "subscription lookup failed",
			logger.Error(err),
			logger.Feature(string(rule.Feature)),
		)
		g.render(w, r, handler.ErrInternalServerError)
	}
}

func (g *Guard) render(w http.ResponseWriter, r *http.Request, err handler.HTTPError) {
	if renderErr := handler.JSONError(err).Render(w, r); renderErr != nil {
		g.logger.ErrorContext(r.Context(), "failed to render access error", logger.Error(renderErr))
	}
}

// wantsHTML reports whether the request comes from a browser navigation.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
