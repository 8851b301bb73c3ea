package subscription

import (
	"errors"

	"github.com/dmitrymomot/gpportal/pkg/validator"
)

// Error categories. Callers match on these with errors.Is; the specific
// sentinels below are joined to one of them.
var (
	ErrValidation   = errors.New("subscription.validation_failed")
	ErrNotFound     = errors.New("subscription.not_found")
	ErrConflict     = errors.New("subscription.conflict")
	ErrInactivePlan = errors.New("subscription.inactive_plan")
	ErrSignature    = errors.New("subscription.invalid_signature")
	ErrPlanNotFound = errors.New("subscription.plan_not_found_for_price")
	ErrReconcile    = errors.New("subscription.reconcile_failed")
	ErrProvider     = errors.New("subscription.provider_error")
)

var (
	ErrTenantNotFound           = errors.New("subscription.tenant_not_found")
	ErrUnknownPlan              = errors.New("subscription.unknown_plan")
	ErrSubscriptionNotFound     = errors.New("subscription.subscription_not_found")
	ErrActiveSubscriptionExists = errors.New("subscription.active_subscription_exists")
	ErrDuplicatePlan            = errors.New("subscription.duplicate_plan")
	ErrPlanImmutable            = errors.New("subscription.plan_immutable")
	ErrNoActiveSubscription     = errors.New("subscription.no_active_subscription")
	ErrFeatureNotAllowed        = errors.New("subscription.feature_not_in_plan")
	ErrPlanNotPurchasable       = errors.New("subscription.plan_not_purchasable")
	ErrGatewayNotConfigured     = errors.New("subscription.gateway_not_configured")
	ErrNoCustomerReference      = errors.New("subscription.no_customer_reference")
	ErrMissingTenantID          = errors.New("subscription.missing_tenant_id")
	ErrMissingExternalID        = errors.New("subscription.missing_external_id")
	ErrMissingPaymentRef        = errors.New("subscription.missing_payment_reference")
	ErrUnsupportedProvider      = errors.New("subscription.unsupported_provider")
	ErrMissingAPIKey            = errors.New("subscription.missing_api_key")
	ErrMissingWebhookSecret     = errors.New("subscription.missing_webhook_secret")
	ErrInvalidEnvironment       = errors.New("subscription.invalid_provider_environment")
	ErrNoCheckoutURL            = errors.New("subscription.no_checkout_url")
	ErrNoPortalURL              = errors.New("subscription.no_portal_url")
	ErrInvalidCatalog           = errors.New("subscription.invalid_catalog")
	ErrInvalidTransition        = errors.New("subscription.invalid_status_transition")
)

// ValidationError collects per-field validation messages on top of
// validator.ValidationErrors. It matches ErrValidation and
// validator.ErrValidationFailed with errors.Is.
type ValidationError struct {
	errs validator.ValidationErrors
}

// NewValidationError returns an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{}
}

// Add records a message for field.
func (e *ValidationError) Add(field, message string) {
	e.errs.Add(validator.ValidationError{Field: field, Message: message})
}

// Check runs rules and records every failure.
func (e *ValidationError) Check(rules ...validator.Rule) {
	e.errs = append(e.errs, validator.Collect(rules...)...)
}

// Has reports whether field has at least one message.
func (e *ValidationError) Has(field string) bool {
	return e.errs.Has(field)
}

// FieldErrors returns the collected messages grouped by field.
func (e *ValidationError) FieldErrors() map[string][]string {
	return e.errs.FieldErrors()
}

// Empty reports whether no messages were collected.
func (e *ValidationError) Empty() bool {
	return e.errs.IsEmpty()
}

// Err returns e when it has messages and nil otherwise.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	return e.errs.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.errs
}

func validationFailed(field, message string) error {
	v := NewValidationError()
	v.Add(field, message)
	return v
}
