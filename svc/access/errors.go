package access

import "errors"

var (
	ErrUnauthenticated      = errors.New("access.unauthenticated")
	ErrForbidden            = errors.New("access.forbidden")
	ErrSubscriptionRequired = errors.New("access.subscription_required")
	ErrFeatureNotInPlan     = errors.New("access.feature_not_in_plan")
	ErrMissingTenant        = errors.New("access.missing_tenant")
)
