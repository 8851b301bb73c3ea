package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
	"github.com/dmitrymomot/gpportal/svc/auth"
)

// querier is the subset of pgxpool.Pool and pgx.Tx used by the scanners.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ subscription.PlanStore         = (*Store)(nil)
	_ subscription.SubscriptionStore = (*Store)(nil)
	_ subscription.PaymentStore      = (*Store)(nil)
	_ subscription.EventStore        = (*Store)(nil)
	_ subscription.TenantDirectory   = (*Store)(nil)
	_ tenant.Store                   = (*Store)(nil)
	_ auth.Storage                   = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the PostgreSQL implementation of the portal's stores.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New panics if pool is nil.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp truncates to the microsecond precision of timestamptz.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
