package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/ratelimiter"
)

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{Limit: 0, Window: time.Minute})
	require.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	_, err = ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{Limit: 1})
	require.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestLimiter(t *testing.T) {
	t.Parallel()

	stores := map[string]func(t *testing.T) ratelimiter.Store{
		"memory": func(*testing.T) ratelimiter.Store { return ratelimiter.NewMemoryStore() },
		"redis": func(t *testing.T) ratelimiter.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return ratelimiter.NewRedisStore(client, ratelimiter.WithKeyPrefix("test:"))
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			l, err := ratelimiter.New(newStore(t), ratelimiter.Config{Limit: 3, Window: time.Minute})
			require.NoError(t, err)

			for i := range 3 {
				res, err := l.Allow(ctx, "10.0.0.1")
				require.NoError(t, err)
				assert.True(t, res.Allowed())
				assert.Equal(t, 2-i, res.Remaining)
			}

			res, err := l.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.False(t, res.Allowed())
			assert.Positive(t, res.RetryAfter(time.Now()))

			other, err := l.Allow(ctx, "10.0.0.2")
			require.NoError(t, err)
			assert.True(t, other.Allowed(), "keys are independent")

			require.NoError(t, l.Reset(ctx, "10.0.0.1"))
			res, err = l.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.Equal(t, 2, res.Remaining)
		})
	}
}

func TestMemoryStore_WindowExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(func() time.Time { return now }))
	l, err := ratelimiter.New(store, ratelimiter.Config{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	res, _ := l.Allow(ctx, "k")
	assert.True(t, res.Allowed())
	res, _ = l.Allow(ctx, "k")
	assert.False(t, res.Allowed())

	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())

	res, _ = l.Allow(ctx, "k")
	assert.True(t, res.Allowed())
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{Limit: 2, Window: time.Minute})
	require.NoError(t, err)

	h := ratelimiter.Middleware(l, ratelimiter.ByIP, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("192.0.2.1:5000").Code)
	rec := send("192.0.2.1:5001")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = send("192.0.2.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")

	assert.Equal(t, http.StatusNoContent, send("192.0.2.7:5000").Code)
}
