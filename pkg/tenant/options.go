package tenant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// ErrorHandler handles errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Resolver extracts the tenant id from a request. ok is false when the
// request carries no tenant.
type Resolver func(r *http.Request) (id uuid.UUID, ok bool)

type config struct {
	errorHandler  ErrorHandler
	requireActive bool
	logger        *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithRequireActive rejects deactivated panchayats. Enabled by default.
func WithRequireActive(require bool) Option {
	return func(c *config) {
		c.requireActive = require
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		http.Error(w, "Gram Panchayat not found", http.StatusNotFound)
	case errors.Is(err, ErrInactiveTenant):
		http.Error(w, "Gram Panchayat is inactive", http.StatusForbidden)
	case errors.Is(err, ErrNoTenantInContext):
		http.Error(w, "Gram Panchayat required", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
