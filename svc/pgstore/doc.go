// Package pgstore implements the portal's storage interfaces on PostgreSQL
// using pgx/v5.
//
// A single Store satisfies subscription.PlanStore, SubscriptionStore,
// PaymentStore and EventStore, tenant.Store and auth.Storage. The schema
// lives in the migrations package.
//
// Constraint violations are translated to the callers' error taxonomy:
// unique violations (23505) become subscription.ErrConflict, foreign key
// violations (23503) and missing rows become the not-found errors.
//
// Tests in this package need a database and run with the integration build
// tag and PG_CONN_URL set.
package pgstore
