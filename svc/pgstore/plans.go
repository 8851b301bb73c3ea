package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

const planColumns = `id, name, description, price_amount, price_currency, duration_months,
	features, COALESCE(external_price_id, ''), active, created_at, updated_at`

func scanPlan(row pgx.Row) (*subscription.Plan, error) {
	var (
		p        subscription.Plan
		features []string
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price.Amount, &p.Price.Currency, &p.Duration,
		&features, &p.ExternalPriceID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Features = make([]subscription.Feature, len(features))
	for i, f := range features {
		p.Features[i] = subscription.Feature(f)
	}
	return &p, nil
}

func featureStrings(features []subscription.Feature) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = string(f)
	}
	return out
}

func planNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Join(subscription.ErrNotFound, subscription.ErrUnknownPlan)
	}
	return subscriptionError(err)
}

func (s *Store) GetPlan(ctx context.Context, id string) (*subscription.Plan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, planNotFound(err)
	}
	return p, nil
}

func (s *Store) GetPlanByExternalPriceID(ctx context.Context, priceID string) (*subscription.Plan, error) {
	if priceID == "" {
		return nil, errors.Join(subscription.ErrNotFound, subscription.ErrUnknownPlan)
	}
	p, err := scanPlan(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE external_price_id = $1`, priceID))
	if err != nil {
		return nil, planNotFound(err)
	}
	return p, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]subscription.Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY price_amount, id`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []subscription.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (s *Store) CreatePlan(ctx context.Context, plan *subscription.Plan) error {
	now := s.timestamp()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plans (id, name, description, price_amount, price_currency, duration_months,
			features, external_price_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		plan.ID, plan.Name, plan.Description, plan.Price.Amount, plan.Price.Currency, plan.Duration,
		featureStrings(plan.Features), nullString(plan.ExternalPriceID), plan.Active, now)
	if err != nil {
		return subscriptionError(err)
	}
	plan.CreatedAt, plan.UpdatedAt = now, now
	return nil
}

func (s *Store) UpdatePlan(ctx context.Context, plan *subscription.Plan) error {
	now := s.timestamp()
	err := s.pool.QueryRow(ctx, `
		UPDATE plans SET name = $2, description = $3, price_amount = $4, price_currency = $5,
			duration_months = $6, features = $7, external_price_id = $8, active = $9, updated_at = $10
		WHERE id = $1
		RETURNING created_at`,
		plan.ID, plan.Name, plan.Description, plan.Price.Amount, plan.Price.Currency, plan.Duration,
		featureStrings(plan.Features), nullString(plan.ExternalPriceID), plan.Active, now,
	).Scan(&plan.CreatedAt)
	if err != nil {
		return planNotFound(err)
	}
	plan.UpdatedAt = now
	return nil
}

func (s *Store) SetPlanActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE plans SET active = $2, updated_at = $3 WHERE id = $1`, id, active, s.timestamp())
	if err != nil {
		return subscriptionError(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(subscription.ErrNotFound, subscription.ErrUnknownPlan)
	}
	return nil
}

func (s *Store) PlanInUse(ctx context.Context, id string) (bool, error) {
	var inUse bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions WHERE plan_id = $1 AND status IN ('ACTIVE', 'TRIALING')
		)`, id).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("check plan usage: %w", err)
	}
	return inUse, nil
}
