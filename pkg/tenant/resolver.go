package tenant

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/session"
)

// FromSession resolves the tenant bound to the request's session.
// session.Middleware must run first.
func FromSession() Resolver {
	return func(r *http.Request) (uuid.UUID, bool) {
		s, ok := session.FromContext(r.Context())
		if !ok || s.TenantID == nil {
			return uuid.Nil, false
		}
		return *s.TenantID, true
	}
}
