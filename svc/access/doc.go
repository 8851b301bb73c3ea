// Package access guards portal routes.
//
// A Guard checks, in order:
//
//  1. a valid session is present (otherwise 401 for API clients, or a
//     303 redirect to the login page for browsers);
//  2. the session's role is allowed on the route (SUPER_ADMIN is always
//     allowed), otherwise 403;
//  3. for Gram Panchayat roles on a feature-gated route, the tenant has a
//     live subscription (otherwise 402, or a redirect to the billing page)
//     whose plan includes the feature (otherwise 403 feature_not_in_plan).
//
// On success the role and, when looked up, the subscription are stored in
// the request context.
//
//	guard := access.New(subscriptionService, access.WithMetrics(m))
//	r.With(guard.RequireFeature(subscription.FeatureCertificates)).Get("/certificates", h)
package access
