// Package rbac models the portal's three roles as a closed enumeration.
//
// Every authorization decision point (route guards, the feature gate caller,
// plan assignment) asks a Role method instead of comparing strings, and each
// method switches over all roles explicitly. Adding a role means revisiting
// every switch in this file.
//
//	role, err := rbac.ParseRole("GP_ADMIN")
//	if role.Satisfies(rbac.GPAdmin, rbac.GPStaff) { ... }
//	if role.BypassesSubscription() { ... }
package rbac
