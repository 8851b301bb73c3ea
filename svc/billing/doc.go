// Package billing exposes subscription management over HTTP.
//
// Handle serves the tenant-facing routes, usually mounted at /billing:
//
//	POST /webhook   provider webhooks, verified by signature
//	GET  /status    {hasActiveSubscription, planName, expiresAt, features}
//	GET  /plans     active plans
//	POST /checkout  hosted checkout for a plan (GP_ADMIN)
//	POST /portal    provider self-service portal link (GP_ADMIN)
//
// Admin serves the SUPER_ADMIN routes, usually mounted at /admin: plan
// assignment and cancellation, plan creation and activation, and per-tenant
// subscription, payment and audit history.
//
// EmailNotifier sends payment receipts to the tenant contact and catalog
// drift alerts to the operator.
package billing
