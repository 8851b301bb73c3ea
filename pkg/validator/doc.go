// Package validator provides rule-based input validation with per-field
// error collection.
//
// A Rule pairs a check with the error reported when it fails. Apply runs
// every rule and returns ValidationErrors listing each failure, so a client
// sees all problems with its input at once:
//
//	err := validator.Apply(
//		validator.ValidEmail("email", email),
//		validator.StrongPassword("password", password, validator.DefaultPasswordPolicy()),
//		validator.NotCommonPassword("password", password),
//	)
//
// ValidationErrors matches ErrValidationFailed with errors.Is and exposes
// FieldErrors, which the handler package renders as a 422 response with
// per-field details.
package validator
