package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

var (
	ErrGatewayDisabled = errors.New("billing.gateway_disabled")
	ErrTenantRequired  = errors.New("billing.tenant_required")
)

// ErrorMapper maps subscription and billing errors to HTTP errors. The most
// specific sentinel is checked first so the client sees a precise key.
// Conflicts are client errors and map to 409 so callers can tell them from
// malformed input (400) and field validation failures (422).
func ErrorMapper(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, subscription.ErrSignature):
		return handler.HTTPError{Code: http.StatusBadRequest, Key: "invalid_signature"}, true
	case errors.Is(err, subscription.ErrReconcile), errors.Is(err, subscription.ErrPlanNotFound):
		return handler.HTTPError{Code: http.StatusInternalServerError, Key: "reconcile_failed"}, true

	case errors.Is(err, subscription.ErrTenantNotFound):
		return handler.HTTPError{Code: http.StatusNotFound, Key: "tenant_not_found"}, true
	case errors.Is(err, subscription.ErrUnknownPlan):
		return handler.HTTPError{Code: http.StatusNotFound, Key: "plan_not_found"}, true
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return handler.HTTPError{Code: http.StatusNotFound, Key: "subscription_not_found"}, true
	case errors.Is(err, subscription.ErrNoActiveSubscription):
		return handler.HTTPError{Code: http.StatusNotFound, Key: "no_active_subscription"}, true
	case errors.Is(err, subscription.ErrNoCustomerReference):
		return handler.HTTPError{Code: http.StatusNotFound, Key: "no_customer_reference"}, true
	case errors.Is(err, subscription.ErrNotFound):
		return handler.ErrNotFound, true

	case errors.Is(err, subscription.ErrActiveSubscriptionExists):
		return handler.HTTPError{Code: http.StatusConflict, Key: "active_subscription_exists"}, true
	case errors.Is(err, subscription.ErrPlanImmutable):
		return handler.HTTPError{Code: http.StatusConflict, Key: "plan_immutable"}, true
	case errors.Is(err, subscription.ErrDuplicatePlan):
		return handler.HTTPError{Code: http.StatusConflict, Key: "duplicate_plan"}, true
	case errors.Is(err, subscription.ErrInvalidTransition):
		return handler.HTTPError{Code: http.StatusConflict, Key: "invalid_status_transition"}, true
	case errors.Is(err, subscription.ErrConflict):
		return handler.ErrConflict, true

	case errors.Is(err, subscription.ErrInactivePlan):
		return handler.HTTPError{Code: http.StatusUnprocessableEntity, Key: "inactive_plan"}, true
	case errors.Is(err, subscription.ErrPlanNotPurchasable):
		return handler.HTTPError{Code: http.StatusUnprocessableEntity, Key: "plan_not_purchasable"}, true
	case errors.Is(err, subscription.ErrValidation):
		return handler.ErrUnprocessableEntity, true

	case errors.Is(err, ErrTenantRequired):
		return handler.HTTPError{Code: http.StatusBadRequest, Key: "tenant_required"}, true
	case errors.Is(err, ErrGatewayDisabled), errors.Is(err, subscription.ErrGatewayNotConfigured):
		return handler.HTTPError{Code: http.StatusServiceUnavailable, Key: "billing_disabled"}, true
	case errors.Is(err, subscription.ErrProvider):
		return handler.ErrBadGateway, true
	}
	return handler.HTTPError{}, false
}
