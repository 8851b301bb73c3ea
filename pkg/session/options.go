package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/gpportal/pkg/cookie"
)

// FingerprintFunc derives a device fingerprint from the request.
type FingerprintFunc func(r *http.Request) string

// RefreshHook runs after a session's expiry is extended. It must not block.
type RefreshHook func(ctx context.Context, s *Session)

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

func WithTransport(transport Transport) Option {
	return func(m *Manager) {
		m.transport = transport
	}
}

func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithCookieManager sets the cookie manager for the default cookie transport.
func WithCookieManager(cookieMgr *cookie.Manager, opts ...cookie.Option) Option {
	return func(m *Manager) {
		m.cookieManager = cookieMgr
		m.cookieOptions = opts
	}
}

func WithFingerprint(fn FingerprintFunc) Option {
	return func(m *Manager) {
		m.fingerprintFunc = fn
	}
}

// WithRefreshHook registers fn to run whenever a session is extended.
func WithRefreshHook(fn RefreshHook) Option {
	return func(m *Manager) {
		if fn != nil {
			m.refreshHooks = append(m.refreshHooks, fn)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
