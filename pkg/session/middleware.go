package session

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// Middleware loads the request's session into the context when one is
// present. Requests without a usable session pass through untouched; a stale
// token is cleared. Sessions close to expiry are extended.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		session, err := m.Get(ctx, r)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				_ = m.transport.ClearToken(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		switch {
		case m.shouldRefresh(session):
			if err := m.Refresh(ctx, w, session); err != nil {
				m.logger.WarnContext(ctx, "failed to refresh session", logger.Error(err))
			}
		case m.shouldUpdateActivity(session):
			m.queueActivityUpdate(session.Token)
		}

		next.ServeHTTP(w, r.WithContext(WithSession(ctx, session)))
	})
}
