package subscription

import (
	"slices"
	"time"

	"github.com/dmitrymomot/gpportal/pkg/validator"
)

// Plan is a priced bundle of features with a billing duration.
type Plan struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description,omitempty" yaml:"description"`
	Price           Money     `json:"price" yaml:"price"`
	Duration        int       `json:"duration_months" yaml:"duration_months"`
	Features        []Feature `json:"features" yaml:"features"`
	ExternalPriceID string    `json:"-" yaml:"external_price_id"`
	Active          bool      `json:"active" yaml:"active"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the plan fields and returns a *ValidationError listing
// every problem found.
func (p Plan) Validate() error {
	v := NewValidationError()
	v.Check(
		validator.RequiredString("id", p.ID),
		validator.ValidSlug("id", p.ID).When(p.ID != ""),
		validator.MaxLenString("id", p.ID, 64),
		validator.RequiredString("name", p.Name),
		validator.MaxLenString("name", p.Name, 120),
		validator.NonNegative("price.amount", p.Price.Amount),
		validator.ValidCurrencyCode("price.currency", p.Price.Currency),
		validator.MinNum("duration_months", p.Duration, 1),
	)
	known := featureNames(knownFeatures)
	for i, f := range p.Features {
		if !f.Valid() {
			v.Check(validator.InList("features", string(f), known))
			continue
		}
		if slices.Contains(p.Features[:i], f) {
			v.Check(validator.NotDuplicate("features", f, p.Features))
		}
	}
	return v.Err()
}

func featureNames(fs []Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// HasFeature reports whether f is part of the plan.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// PeriodEnd returns the end of a billing term starting at from.
// One period is one calendar month.
func (p Plan) PeriodEnd(from time.Time) time.Time {
	return from.AddDate(0, p.Duration, 0)
}

// Purchasable reports whether the plan can be sold through a payment gateway.
func (p Plan) Purchasable() bool {
	return p.Active && p.ExternalPriceID != ""
}

// SameTerms reports whether two plans agree on every field that is frozen
// once a subscription references the plan. Activation is not a term.
func (p Plan) SameTerms(o Plan) bool {
	return p.Name == o.Name &&
		p.Price == o.Price &&
		p.Duration == o.Duration &&
		p.ExternalPriceID == o.ExternalPriceID &&
		slices.Equal(p.Features, o.Features)
}

func (p *Plan) clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Features = slices.Clone(p.Features)
	return &c
}
