package session

import (
	"context"
	"log/slog"
)

type sessionContextKey struct{}

// WithSession adds a session to the context.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// FromContext retrieves the session stored by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok && session != nil
}

// LoggerExtractor returns a logger context extractor for the user id.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if s, ok := FromContext(ctx); ok {
			return slog.String("user_id", s.UserID.String()), true
		}
		return slog.Attr{}, false
	}
}
