package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists audit events.
type Storage interface {
	StoreEvents(ctx context.Context, events []Event) error
}

// IDExtractor pulls an id from the request context.
type IDExtractor func(ctx context.Context) (uuid.UUID, bool)

// Option configures a Logger.
type Option func(*Logger)

func WithTenantExtractor(fn IDExtractor) Option {
	return func(l *Logger) {
		l.tenantID = fn
	}
}

func WithActorExtractor(fn IDExtractor) Option {
	return func(l *Logger) {
		l.actorID = fn
	}
}

func WithRequestIDExtractor(fn func(ctx context.Context) (string, bool)) Option {
	return func(l *Logger) {
		l.requestID = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// Logger records audit events.
type Logger struct {
	storage   Storage
	tenantID  IDExtractor
	actorID   IDExtractor
	requestID func(ctx context.Context) (string, bool)
	now       func() time.Time
}

// NewLogger panics if storage is nil.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage is required")
	}
	l := &Logger{storage: storage, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records a successful action.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	return l.store(ctx, l.newEvent(ctx, action, ResultSuccess, opts))
}

// LogError records a failed action together with its error.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	ev := l.newEvent(ctx, action, ResultFailure, opts)
	if err != nil {
		ev.Error = err.Error()
	}
	return l.store(ctx, ev)
}

func (l *Logger) newEvent(ctx context.Context, action string, result Result, opts []EventOption) Event {
	ev := Event{
		ID:        uuid.New(),
		Action:    action,
		Result:    result,
		CreatedAt: l.now().UTC(),
	}
	if l.tenantID != nil {
		if id, ok := l.tenantID(ctx); ok {
			ev.TenantID = &id
		}
	}
	if l.actorID != nil {
		if id, ok := l.actorID(ctx); ok {
			ev.ActorID = &id
		}
	}
	if l.requestID != nil {
		if id, ok := l.requestID(ctx); ok {
			ev.RequestID = id
		}
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return ev
}

func (l *Logger) store(ctx context.Context, ev Event) error {
	if err := ev.validate(); err != nil {
		return err
	}
	return l.storage.StoreEvents(ctx, []Event{ev})
}
