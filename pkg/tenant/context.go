package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithTenant adds a tenant to the context.
func WithTenant(ctx context.Context, tenant *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, tenant)
}

// FromContext retrieves the tenant stored by WithTenant.
func FromContext(ctx context.Context) (*Tenant, bool) {
	tenant, ok := ctx.Value(contextKey{}).(*Tenant)
	return tenant, ok && tenant != nil
}

// IDFromContext retrieves just the tenant id from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenant, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return tenant.ID, true
}

// LoggerExtractor returns a logger context extractor for the tenant id.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
