package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

func (s *Store) RecordPayment(ctx context.Context, p *subscription.Payment) (bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := s.timestamp()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO payments (id, tenant_id, subscription_id, amount, currency, provider, external_ref, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider, external_ref) DO NOTHING`,
		p.ID, p.TenantID, p.SubscriptionID, p.Amount.Amount, p.Amount.Currency,
		p.Provider, p.ExternalRef, p.PaidAt, now)
	if err != nil {
		return false, subscriptionError(err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	p.CreatedAt = now
	return true, nil
}

func (s *Store) ListPayments(ctx context.Context, tenantID uuid.UUID) ([]subscription.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, subscription_id, amount, currency, provider, external_ref, paid_at, created_at
		FROM payments WHERE tenant_id = $1 ORDER BY paid_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []subscription.Payment
	for rows.Next() {
		var p subscription.Payment
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SubscriptionID, &p.Amount.Amount, &p.Amount.Currency,
			&p.Provider, &p.ExternalRef, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) IsProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	var processed bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM webhook_events WHERE provider = $1 AND event_id = $2)`,
		provider, eventID).Scan(&processed)
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return processed, nil
}

func (s *Store) MarkProcessed(ctx context.Context, provider, eventID string, eventType subscription.EventType, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events (provider, event_id, event_type, processed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, event_id) DO NOTHING`,
		provider, eventID, string(eventType), at)
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}
