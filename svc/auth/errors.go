package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("auth.user_not_found")
	ErrEmailAlreadyExists = errors.New("auth.email_already_exists")
	ErrInvalidCredentials = errors.New("auth.invalid_credentials")
	ErrInvalidUser        = errors.New("auth.invalid_user")
	ErrWeakPassword       = errors.New("auth.weak_password")
	ErrTenantUnavailable  = errors.New("auth.tenant_unavailable")
)
