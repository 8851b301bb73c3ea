package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithGateway enables checkout and customer portal operations.
func WithGateway(g Gateway) ServiceOption {
	return func(s *service) {
		if g != nil {
			s.gateway = g
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for period arithmetic and
// gate decisions.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFeatureCache sizes the per-tenant subscription cache used by the read
// path. A non-positive ttl disables caching.
func WithFeatureCache(capacity int, ttl time.Duration) ServiceOption {
	return func(s *service) {
		s.cacheCapacity = capacity
		s.cacheTTL = ttl
	}
}

// WithChangeHook registers fn to run after every subscription mutation the
// service performs or observes.
func WithChangeHook(fn ChangeHook) ServiceOption {
	return func(s *service) {
		if fn != nil {
			s.hooks = append(s.hooks, fn)
		}
	}
}
