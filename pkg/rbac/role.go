package rbac

import (
	"fmt"
	"slices"
)

// Role is one of the fixed portal roles. The zero value is not a valid role.
type Role uint8

const (
	// SuperAdmin operates the platform. Tenant-less, bypasses subscription checks.
	SuperAdmin Role = iota + 1
	// GPAdmin administers a single Gram Panchayat, including its billing.
	GPAdmin
	// GPStaff works inside a single Gram Panchayat.
	GPStaff
)

// All returns every valid role.
func All() []Role {
	return []Role{SuperAdmin, GPAdmin, GPStaff}
}

// ParseRole converts the canonical role name into a Role.
func ParseRole(name string) (Role, error) {
	switch name {
	case "SUPER_ADMIN":
		return SuperAdmin, nil
	case "GP_ADMIN":
		return GPAdmin, nil
	case "GP_STAFF":
		return GPStaff, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, name)
	}
}

func (r Role) String() string {
	switch r {
	case SuperAdmin:
		return "SUPER_ADMIN"
	case GPAdmin:
		return "GP_ADMIN"
	case GPStaff:
		return "GP_STAFF"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case SuperAdmin, GPAdmin, GPStaff:
		return true
	default:
		return false
	}
}

// RequiresTenant reports whether a user with this role must belong to a tenant.
func (r Role) RequiresTenant() bool {
	switch r {
	case SuperAdmin:
		return false
	case GPAdmin, GPStaff:
		return true
	default:
		return false
	}
}

// BypassesSubscription reports whether the role skips plan-based feature gating.
func (r Role) BypassesSubscription() bool {
	switch r {
	case SuperAdmin:
		return true
	case GPAdmin, GPStaff:
		return false
	default:
		return false
	}
}

// CanAssignPlans reports whether the role may assign or cancel subscriptions directly.
func (r Role) CanAssignPlans() bool {
	switch r {
	case SuperAdmin:
		return true
	case GPAdmin, GPStaff:
		return false
	default:
		return false
	}
}

// CanManageBilling reports whether the role may start checkouts and open the
// customer portal for its own tenant.
func (r Role) CanManageBilling() bool {
	switch r {
	case SuperAdmin, GPAdmin:
		return true
	case GPStaff:
		return false
	default:
		return false
	}
}

// Satisfies reports whether r may access a route restricted to allowed.
// SuperAdmin is granted universal access. An empty allowed list admits any valid role.
func (r Role) Satisfies(allowed ...Role) bool {
	switch r {
	case SuperAdmin:
		return true
	case GPAdmin, GPStaff:
		return len(allowed) == 0 || slices.Contains(allowed, r)
	default:
		return false
	}
}

// MarshalText encodes the role by its canonical name.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a canonical role name.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
