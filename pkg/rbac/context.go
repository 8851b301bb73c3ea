package rbac

import (
	"context"
	"log/slog"
)

type roleCtxKey struct{}

// WithRole stores the caller's role in the context.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleCtxKey{}, role)
}

// RoleFromContext retrieves the caller's role from the context.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleCtxKey{}).(Role)
	return role, ok && role.Valid()
}

// LoggerExtractor returns a logger context extractor for the caller's role.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if role, ok := RoleFromContext(ctx); ok {
			return slog.String("role", role.String()), true
		}
		return slog.Attr{}, false
	}
}
