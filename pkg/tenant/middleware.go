package tenant

import (
	"net/http"

	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// Middleware resolves the request's tenant through dir and stores it in the
// context. Requests without a tenant (for example a super admin) continue
// untouched.
func Middleware(dir *Directory, resolve Resolver, opts ...Option) func(http.Handler) http.Handler {
	if dir == nil || resolve == nil {
		panic("tenant: directory and resolver are required")
	}

	cfg := &config{
		errorHandler:  defaultErrorHandler,
		requireActive: true,
		logger:        logger.Noop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := resolve(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			t, err := dir.Get(r.Context(), id)
			if err != nil {
				cfg.logger.WarnContext(r.Context(), "tenant resolution failed",
					logger.TenantID(id),
					logger.Error(err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			if cfg.requireActive && !t.Active {
				cfg.errorHandler(w, r, ErrInactiveTenant)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
		})
	}
}

// RequireTenant rejects requests without a tenant in the context.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
