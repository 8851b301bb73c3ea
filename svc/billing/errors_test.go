package billing_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/svc/billing"
)

func TestErrorMapper(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code int
		key  string
	}{
		{"signature", fmt.Errorf("verify: %w", subscription.ErrSignature), http.StatusBadRequest, "invalid_signature"},
		{"reconcile wins over not found", errors.Join(subscription.ErrReconcile, subscription.ErrNotFound), http.StatusInternalServerError, "reconcile_failed"},
		{"unknown price", subscription.ErrPlanNotFound, http.StatusInternalServerError, "reconcile_failed"},
		{"tenant", errors.Join(subscription.ErrNotFound, subscription.ErrTenantNotFound), http.StatusNotFound, "tenant_not_found"},
		{"generic not found", subscription.ErrNotFound, http.StatusNotFound, "not_found"},
		{"one live subscription", errors.Join(subscription.ErrConflict, subscription.ErrActiveSubscriptionExists), http.StatusConflict, "active_subscription_exists"},
		{"closed subscription", subscription.CheckSync(context.Background(), subscription.StatusCancelled, subscription.StatusActive), http.StatusConflict, "invalid_status_transition"},
		{"generic conflict", subscription.ErrConflict, http.StatusConflict, "conflict"},
		{"inactive plan", subscription.ErrInactivePlan, http.StatusUnprocessableEntity, "inactive_plan"},
		{"not purchasable", errors.Join(subscription.ErrValidation, subscription.ErrPlanNotPurchasable), http.StatusUnprocessableEntity, "plan_not_purchasable"},
		{"no gateway", subscription.ErrGatewayNotConfigured, http.StatusServiceUnavailable, "billing_disabled"},
		{"provider down", errors.Join(subscription.ErrProvider, errors.New("timeout")), http.StatusBadGateway, "bad_gateway"},
		{"tenant required", billing.ErrTenantRequired, http.StatusBadRequest, "tenant_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			he, ok := billing.ErrorMapper(tt.err)
			assert.True(t, ok)
			assert.Equal(t, tt.code, he.Code)
			assert.Equal(t, tt.key, he.Key)
		})
	}

	_, ok := billing.ErrorMapper(errors.New("boom"))
	assert.False(t, ok)
}
