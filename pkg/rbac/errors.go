package rbac

import "errors"

var (
	// ErrInvalidRole is returned when a role name is not one of the known roles.
	ErrInvalidRole = errors.New("rbac.invalid_role")

	// ErrRoleNotInContext is returned when no role is found in the context.
	ErrRoleNotInContext = errors.New("rbac.role_not_in_context")
)
