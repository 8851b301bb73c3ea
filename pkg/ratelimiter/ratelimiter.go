package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config bounds the hits a key may make per window.
type Config struct {
	Limit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	Window time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Store counts hits per key and window.
type Store interface {
	// Hit records one hit for key and returns the hits in the current
	// window and when that window ends. The first hit opens the window.
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// Result is the outcome of one Allow call.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the hit fit in the window.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long a rejected caller should wait.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed() || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Limiter applies Config over a Store.
type Limiter struct {
	store Store
	cfg   Config
}

// New panics if store is nil and fails on an invalid cfg.
func New(store Store, cfg Config) (*Limiter, error) {
	if store == nil {
		panic("ratelimiter: store is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, cfg: cfg}, nil
}

// Allow records a hit for key.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	count, resetAt, err := l.store.Hit(ctx, key, l.cfg.Window)
	if err != nil {
		return nil, err
	}
	return &Result{
		Limit:     l.cfg.Limit,
		Remaining: l.cfg.Limit - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset forgets every hit recorded for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
