package tenant

import "errors"

var (
	ErrTenantNotFound    = errors.New("tenant.not_found")
	ErrNoTenantInContext = errors.New("tenant.not_in_context")
	ErrInactiveTenant    = errors.New("tenant.inactive")
)
