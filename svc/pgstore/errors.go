package pgstore

import (
	"errors"

	"github.com/dmitrymomot/gpportal/pkg/pg"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

// Constraint names from the migrations.
const (
	constraintPlanName    = "plans_name_key"
	constraintPlanPrice   = "plans_external_price_id_key"
	constraintOneLive     = "subscriptions_one_live_per_tenant"
	constraintSubTenantFK = "subscriptions_tenant_id_fkey"
	constraintSubPlanFK   = "subscriptions_plan_id_fkey"
	constraintUserEmail   = "users_email_key"
)

// subscriptionError translates driver errors raised by plan, subscription
// and payment statements.
func subscriptionError(err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return errors.Join(subscription.ErrNotFound, err)
	case pg.IsDuplicateKeyError(err):
		switch pg.ConstraintName(err) {
		case constraintOneLive:
			return errors.Join(subscription.ErrConflict, subscription.ErrActiveSubscriptionExists, err)
		case constraintPlanName, constraintPlanPrice, "plans_pkey":
			return errors.Join(subscription.ErrConflict, subscription.ErrDuplicatePlan, err)
		default:
			return errors.Join(subscription.ErrConflict, err)
		}
	case pg.IsForeignKeyViolationError(err):
		switch pg.ConstraintName(err) {
		case constraintSubPlanFK:
			return errors.Join(subscription.ErrNotFound, subscription.ErrUnknownPlan, err)
		case constraintSubTenantFK:
			return errors.Join(subscription.ErrNotFound, subscription.ErrTenantNotFound, err)
		default:
			return errors.Join(subscription.ErrNotFound, err)
		}
	}
	return err
}
