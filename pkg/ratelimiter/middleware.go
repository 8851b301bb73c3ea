package ratelimiter

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// KeyFunc extracts the throttling key from a request. An empty key skips
// throttling.
type KeyFunc func(r *http.Request) string

// ByIP keys requests by remote address. Run chi's RealIP middleware first
// when the portal sits behind a proxy.
func ByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ErrTooManyRequests is rendered when a key exhausts its window.
var ErrTooManyRequests = handler.HTTPError{
	Code:    http.StatusTooManyRequests,
	Key:     "too_many_requests",
	Message: "Too many attempts, try again later",
}

// Middleware rejects requests whose key exhausted its window. Store
// failures are logged and let the request through.
func Middleware(l *Limiter, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if l == nil || key == nil {
		panic("ratelimiter: limiter and key func are required")
	}
	if log == nil {
		log = logger.Noop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), k)
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				if wait := res.RetryAfter(time.Now()); wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				}
				log.WarnContext(r.Context(), "request throttled", slog.String("key", k))
				_ = handler.JSONError(ErrTooManyRequests).Render(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
