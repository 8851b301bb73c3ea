package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/session"
)

func sessionEcho(t *testing.T) (http.Handler, *atomic.Pointer[session.Session]) {
	t.Helper()

	var seen atomic.Pointer[session.Session]
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := session.FromContext(r.Context()); ok {
			seen.Store(s)
		}
		w.WriteHeader(http.StatusNoContent)
	}), &seen
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("anonymous request passes through", func(t *testing.T) {
		t.Parallel()
		mgr, _ := newManager(t)
		next, seen := sessionEcho(t)

		rec := httptest.NewRecorder()
		mgr.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Nil(t, seen.Load())
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("loads session into context", func(t *testing.T) {
		t.Parallel()
		mgr, _ := newManager(t)
		next, seen := sessionEcho(t)

		login := httptest.NewRecorder()
		s, err := mgr.Login(ctx, login, httptest.NewRequest(http.MethodPost, "/login", nil), gpAdmin())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		mgr.Middleware(next).ServeHTTP(rec, withCookies(login))

		got := seen.Load()
		require.NotNil(t, got)
		assert.Equal(t, s.ID, got.ID)
	})

	t.Run("expired session clears cookie", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		mgr, _ := newManager(t, session.WithClock(clock.Now))
		next, seen := sessionEcho(t)

		login := httptest.NewRecorder()
		_, err := mgr.Login(ctx, login, httptest.NewRequest(http.MethodPost, "/login", nil), gpAdmin())
		require.NoError(t, err)

		clock.Advance(3 * time.Hour)
		rec := httptest.NewRecorder()
		mgr.Middleware(next).ServeHTTP(rec, withCookies(login))

		assert.Nil(t, seen.Load())
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Negative(t, cookies[0].MaxAge)
	})

	t.Run("slides expiry when half the idle time is used", func(t *testing.T) {
		t.Parallel()
		clock := newTestClock()
		var hooks atomic.Int32
		mgr, _ := newManager(t,
			session.WithClock(clock.Now),
			session.WithRefreshHook(func(context.Context, *session.Session) { hooks.Add(1) }),
		)
		next, seen := sessionEcho(t)

		login := httptest.NewRecorder()
		s, err := mgr.Login(ctx, login, httptest.NewRequest(http.MethodPost, "/login", nil), gpAdmin())
		require.NoError(t, err)

		clock.Advance(90 * time.Minute)
		rec := httptest.NewRecorder()
		mgr.Middleware(next).ServeHTTP(rec, withCookies(login))

		got := seen.Load()
		require.NotNil(t, got)
		assert.True(t, got.ExpiresAt.After(s.ExpiresAt))
		assert.Equal(t, int32(1), hooks.Load())
	})
}
