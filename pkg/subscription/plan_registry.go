package subscription

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// SyncReport summarizes a catalog sync.
type SyncReport struct {
	Created   []string `json:"created"`
	Updated   []string `json:"updated"`
	Unchanged []string `json:"unchanged"`
	// Frozen lists plans whose terms differ from the catalog but which are
	// referenced by a live subscription and were left as stored.
	Frozen []string `json:"frozen"`
}

func (s *service) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	if activeOnly {
		plans = slices.DeleteFunc(plans, func(p Plan) bool { return !p.Active })
	}
	return plans, nil
}

func (s *service) GetPlan(ctx context.Context, id string) (*Plan, error) {
	if id == "" {
		return nil, validationFailed("plan_id", "is required")
	}
	return s.plans.GetPlan(ctx, id)
}

func (s *service) GetPlanByExternalPriceID(ctx context.Context, priceID string) (*Plan, error) {
	plan, err := s.plans.GetPlanByExternalPriceID(ctx, priceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Join(ErrPlanNotFound, fmt.Errorf("price %q", priceID))
		}
		return nil, err
	}
	return plan, nil
}

// CreatePlan validates and stores a new plan. Name, id and external price
// must be unique.
func (s *service) CreatePlan(ctx context.Context, plan Plan) (*Plan, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	p := plan.clone()
	if err := s.plans.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "plan created", logger.PlanID(p.ID))
	return p, nil
}

// SetPlanActive toggles plan activation. Deactivation does not affect
// existing subscriptions; it only blocks new assignments and checkouts.
func (s *service) SetPlanActive(ctx context.Context, id string, active bool) (*Plan, error) {
	if id == "" {
		return nil, validationFailed("plan_id", "is required")
	}
	if err := s.plans.SetPlanActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "plan activation changed",
		logger.PlanID(id),
		"active", active,
	)
	return s.plans.GetPlan(ctx, id)
}

// SyncCatalog creates missing plans and updates changed ones. Plans in use by
// a live subscription keep their stored terms; only activation follows the
// catalog for them.
func (s *service) SyncCatalog(ctx context.Context, plans []Plan) (*SyncReport, error) {
	report := &SyncReport{}
	for _, want := range plans {
		if err := want.Validate(); err != nil {
			return report, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %q: %w", want.ID, err))
		}

		have, err := s.plans.GetPlan(ctx, want.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			if err := s.plans.CreatePlan(ctx, want.clone()); err != nil {
				return report, fmt.Errorf("create plan %q: %w", want.ID, err)
			}
			report.Created = append(report.Created, want.ID)
			continue
		case err != nil:
			return report, fmt.Errorf("get plan %q: %w", want.ID, err)
		}

		if have.SameTerms(want) && have.Description == want.Description {
			if have.Active != want.Active {
				if err := s.plans.SetPlanActive(ctx, want.ID, want.Active); err != nil {
					return report, fmt.Errorf("toggle plan %q: %w", want.ID, err)
				}
				report.Updated = append(report.Updated, want.ID)
				continue
			}
			report.Unchanged = append(report.Unchanged, want.ID)
			continue
		}

		inUse, err := s.plans.PlanInUse(ctx, want.ID)
		if err != nil {
			return report, fmt.Errorf("check plan usage %q: %w", want.ID, err)
		}
		if inUse && !have.SameTerms(want) {
			s.logger.WarnContext(ctx, "catalog changes terms of a plan in use, keeping stored terms",
				logger.PlanID(want.ID),
				logger.Error(ErrPlanImmutable),
			)
			if have.Active != want.Active {
				if err := s.plans.SetPlanActive(ctx, want.ID, want.Active); err != nil {
					return report, fmt.Errorf("toggle plan %q: %w", want.ID, err)
				}
			}
			report.Frozen = append(report.Frozen, want.ID)
			continue
		}

		if err := s.plans.UpdatePlan(ctx, want.clone()); err != nil {
			return report, fmt.Errorf("update plan %q: %w", want.ID, err)
		}
		report.Updated = append(report.Updated, want.ID)
	}

	s.logger.InfoContext(ctx, "plan catalog synced",
		"created", len(report.Created),
		"updated", len(report.Updated),
		"unchanged", len(report.Unchanged),
		"frozen", len(report.Frozen),
	)
	return report, nil
}
