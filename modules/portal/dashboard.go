package portal

import (
	"slices"
	"time"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
)

// Dashboard is the landing view. It is never subscription-gated so a tenant
// without a plan still sees where to subscribe.
type Dashboard struct {
	Role     rbac.Role              `json:"role"`
	Tenant   *tenant.Tenant         `json:"tenant,omitempty"`
	Plan     *PlanSummary           `json:"plan,omitempty"`
	Features []subscription.Feature `json:"features"`
	Sections []SectionAccess        `json:"sections"`
}

type PlanSummary struct {
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SectionAccess tells the caller whether a section link leads anywhere.
type SectionAccess struct {
	Section
	Allowed bool `json:"allowed"`
}

type dashboard struct {
	subs    SubscriptionSource
	tenants TenantLookup
	now     func() time.Time
}

func (d *dashboard) show(ctx handler.Context, _ struct{}) handler.Response {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}

	view := Dashboard{Role: sess.Role, Features: []subscription.Feature{}}

	if sess.Role.BypassesSubscription() {
		view.Features = subscription.KnownFeatures()
	} else if sess.TenantID != nil {
		t, err := d.tenants.Get(ctx, *sess.TenantID)
		if err != nil {
			return handler.Error(err)
		}
		view.Tenant = t

		sub, err := d.subs.CachedActiveSubscription(ctx, t.ID)
		if err != nil {
			return handler.Error(err)
		}
		now := d.now()
		view.Features = subscription.AllowedFeatures(sub, now)
		if sub.ActiveAt(now) && sub.Plan != nil {
			view.Plan = &PlanSummary{Name: sub.Plan.Name, ExpiresAt: sub.CurrentPeriodEnd}
		}
	}

	for _, sec := range sections {
		view.Sections = append(view.Sections, SectionAccess{
			Section: sec,
			Allowed: sess.Role.Satisfies(sec.Roles...) && slices.Contains(view.Features, sec.Feature),
		})
	}
	return handler.JSON(view)
}

// SectionIndex describes an unlocked section.
type SectionIndex struct {
	Section
	TenantID string `json:"tenant_id,omitempty"`
}

func sectionIndex(sec Section) handler.HandlerFunc[struct{}] {
	return func(ctx handler.Context, _ struct{}) handler.Response {
		idx := SectionIndex{Section: sec}
		if sess, ok := session.FromContext(ctx); ok && sess.TenantID != nil {
			idx.TenantID = sess.TenantID.String()
		}
		return handler.JSON(idx)
	}
}
