package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/gpportal/pkg/pg"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

const subscriptionColumns = `id, tenant_id, plan_id, status, current_period_end, provider,
	COALESCE(external_id, ''), COALESCE(external_customer_id, ''),
	cancelled_at, last_event_at, created_at, updated_at`

const liveStatuses = `('ACTIVE', 'TRIALING')`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub    subscription.Subscription
		status string
	)
	if err := row.Scan(
		&sub.ID, &sub.TenantID, &sub.PlanID, &status, &sub.CurrentPeriodEnd, &sub.Provider,
		&sub.ExternalID, &sub.ExternalCustomerID,
		&sub.CancelledAt, &sub.LastEventAt, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sub.Status = subscription.Status(status)
	return &sub, nil
}

func subscriptionNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Join(subscription.ErrNotFound, subscription.ErrSubscriptionNotFound)
	}
	return subscriptionError(err)
}

func getSubscription(ctx context.Context, q querier, where string, args ...any) (*subscription.Subscription, error) {
	sub, err := scanSubscription(q.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE `+where, args...))
	if err != nil {
		return nil, subscriptionNotFound(err)
	}
	return sub, nil
}

func (s *Store) GetSubscription(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	return getSubscription(ctx, s.pool, `id = $1`, id)
}

func (s *Store) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error) {
	return getSubscription(ctx, s.pool, `tenant_id = $1 AND status IN `+liveStatuses, tenantID)
}

func (s *Store) GetByExternalID(ctx context.Context, provider, externalID string) (*subscription.Subscription, error) {
	if externalID == "" {
		return nil, errors.Join(subscription.ErrNotFound, subscription.ErrSubscriptionNotFound)
	}
	return getSubscription(ctx, s.pool, `provider = $1 AND external_id = $2`, provider, externalID)
}

func (s *Store) ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]subscription.Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	now := s.timestamp()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (id, tenant_id, plan_id, status, current_period_end, provider,
			external_id, external_customer_id, cancelled_at, last_event_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		sub.ID, sub.TenantID, sub.PlanID, string(sub.Status), sub.CurrentPeriodEnd, sub.Provider,
		nullString(sub.ExternalID), nullString(sub.ExternalCustomerID), sub.CancelledAt, sub.LastEventAt, now)
	if err != nil {
		return subscriptionError(err)
	}
	sub.CreatedAt, sub.UpdatedAt = now, now
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status subscription.Status, at time.Time) (*subscription.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx, `
		UPDATE subscriptions SET
			status = $2,
			cancelled_at = CASE WHEN $2 = 'CANCELLED' THEN COALESCE(cancelled_at, $3) ELSE cancelled_at END,
			updated_at = $4
		WHERE id = $1
		RETURNING `+subscriptionColumns,
		id, string(status), at, s.timestamp()))
	if err != nil {
		return nil, subscriptionNotFound(err)
	}
	return sub, nil
}

// UpsertFromPayment runs in a transaction that locks the row addressed by
// the provider reference. The lifecycle check runs against the locked row,
// so a CANCELLED or EXPIRED row is never revived. A live insert first
// cancels the tenant's current live subscription so the
// one-live-per-tenant index holds.
func (s *Store) UpsertFromPayment(ctx context.Context, p subscription.UpsertParams) (*subscription.Subscription, error) {
	var result *subscription.Subscription
	err := pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		now := s.timestamp()

		existing, err := getSubscription(ctx, tx, `provider = $1 AND external_id = $2 FOR UPDATE`, p.Provider, p.ExternalID)
		switch {
		case err == nil:
			if existing.StaleEvent(p.EventAt) {
				result = existing
				return nil
			}
			if err := subscription.CheckSync(ctx, existing.Status, p.Status); err != nil {
				return err
			}
			result, err = scanSubscription(tx.QueryRow(ctx, `
				UPDATE subscriptions SET
					plan_id = $2,
					status = $3,
					current_period_end = $4,
					external_customer_id = COALESCE($5, external_customer_id),
					cancelled_at = CASE WHEN $3 = 'CANCELLED' THEN COALESCE(cancelled_at, $6) ELSE cancelled_at END,
					last_event_at = COALESCE($7, last_event_at),
					updated_at = $6
				WHERE id = $1
				RETURNING `+subscriptionColumns,
				existing.ID, p.PlanID, string(p.Status), p.CurrentPeriodEnd,
				nullString(p.CustomerID), now, nullTime(p.EventAt)))
			return subscriptionError(err)
		case !errors.Is(err, subscription.ErrNotFound):
			return err
		}

		if err := subscription.CheckSync(ctx, "", p.Status); err != nil {
			return err
		}
		if p.Status.Live() {
			if _, err := tx.Exec(ctx, `
				UPDATE subscriptions SET status = 'CANCELLED', cancelled_at = $2, updated_at = $2
				WHERE tenant_id = $1 AND status IN `+liveStatuses,
				p.TenantID, now); err != nil {
				return subscriptionError(err)
			}
		}

		result, err = scanSubscription(tx.QueryRow(ctx, `
			INSERT INTO subscriptions (id, tenant_id, plan_id, status, current_period_end, provider,
				external_id, external_customer_id, last_event_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			RETURNING `+subscriptionColumns,
			uuid.New(), p.TenantID, p.PlanID, string(p.Status), p.CurrentPeriodEnd, p.Provider,
			nullString(p.ExternalID), nullString(p.CustomerID), nullTime(p.EventAt), now))
		return subscriptionError(err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
