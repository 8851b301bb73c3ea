package audit

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

// ResourceSubscription is the resource name of subscription events.
const ResourceSubscription = "subscription"

// SubscriptionHook records every subscription mutation as
// "subscription.<kind>". Storage errors are logged, not returned.
func SubscriptionHook(l *Logger, log *slog.Logger) subscription.ChangeHook {
	if l == nil {
		panic("audit: logger is required")
	}
	if log == nil {
		log = logger.Noop()
	}
	return func(ctx context.Context, kind subscription.ChangeKind, sub *subscription.Subscription) {
		opts := []EventOption{
			WithTenant(sub.TenantID),
			WithResource(ResourceSubscription, sub.ID.String()),
			WithMetadata("plan_id", sub.PlanID),
			WithMetadata("status", string(sub.Status)),
			WithMetadata("provider", sub.Provider),
		}
		if sub.ExternalID != "" {
			opts = append(opts, WithMetadata("external_id", sub.ExternalID))
		}
		if err := l.Log(ctx, ResourceSubscription+"."+string(kind), opts...); err != nil {
			log.WarnContext(ctx, "audit event not recorded",
				logger.Component("audit"),
				logger.SubscriptionID(sub.ID),
				logger.Error(err),
			)
		}
	}
}
