// Package tenant models Gram Panchayats, the tenants of the portal.
//
// A Directory fronts a Store with a TTL/LRU cache and doubles as the
// tenant directory used by the subscription service. Middleware resolves the
// tenant bound to the signed-in session, rejects unknown or deactivated
// panchayats and stores the Tenant in the request context:
//
//	dir := tenant.NewDirectory(store)
//	r.Use(sessions.Middleware)
//	r.Use(tenant.Middleware(dir, tenant.FromSession()))
//
// Handlers read it back with FromContext or IDFromContext. Super admins are
// not bound to a tenant, so their requests pass through without one.
package tenant
