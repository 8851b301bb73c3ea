package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

func TestIsFeatureAllowedAt(t *testing.T) {
	t.Parallel()

	plan := basicPlan()
	active := func(status subscription.Status, end time.Time) *subscription.Subscription {
		return &subscription.Subscription{
			PlanID:           plan.ID,
			Plan:             &plan,
			Status:           status,
			CurrentPeriodEnd: end,
		}
	}
	future := testNow.Add(24 * time.Hour)

	tests := []struct {
		name    string
		sub     *subscription.Subscription
		feature subscription.Feature
		want    bool
	}{
		{"nil subscription", nil, subscription.FeatureCertificates, false},
		{"active with feature", active(subscription.StatusActive, future), subscription.FeatureCertificates, true},
		{"active without feature", active(subscription.StatusActive, future), subscription.FeatureWaterQuality, false},
		{"trialing with feature", active(subscription.StatusTrialing, future), subscription.FeatureSchemes, true},
		{"past due", active(subscription.StatusPastDue, future), subscription.FeatureCertificates, false},
		{"cancelled", active(subscription.StatusCancelled, future), subscription.FeatureCertificates, false},
		{"expired", active(subscription.StatusExpired, future), subscription.FeatureCertificates, false},
		{"incomplete", active(subscription.StatusIncomplete, future), subscription.FeatureCertificates, false},
		{"period ends exactly now", active(subscription.StatusActive, testNow), subscription.FeatureCertificates, false},
		{"period ended", active(subscription.StatusActive, testNow.Add(-time.Second)), subscription.FeatureCertificates, false},
		{"period ends in a second", active(subscription.StatusActive, testNow.Add(time.Second)), subscription.FeatureCertificates, true},
		{
			"plan not attached",
			&subscription.Subscription{Status: subscription.StatusActive, CurrentPeriodEnd: future},
			subscription.FeatureCertificates,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, subscription.IsFeatureAllowedAt(tt.sub, tt.feature, testNow))
		})
	}
}

func TestIsFeatureAllowed_DoesNotMutate(t *testing.T) {
	t.Parallel()

	plan := proPlan()
	sub := &subscription.Subscription{
		Plan:             &plan,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: time.Now().Add(time.Hour),
	}
	before := sub.Clone()

	assert.True(t, subscription.IsFeatureAllowed(sub, subscription.FeatureStaff))
	assert.Equal(t, before, sub)
}

func TestAllowedFeatures(t *testing.T) {
	t.Parallel()

	plan := basicPlan()
	sub := &subscription.Subscription{
		Plan:             &plan,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: testNow.Add(time.Hour),
	}

	assert.Equal(t,
		[]subscription.Feature{subscription.FeatureCertificates, subscription.FeatureSchemes},
		subscription.AllowedFeatures(sub, testNow),
	)
	assert.Empty(t, subscription.AllowedFeatures(nil, testNow))
	assert.Empty(t, subscription.AllowedFeatures(sub, testNow.Add(2*time.Hour)))
}
