// Package subscription implements plan-based feature gating and payment
// reconciliation for Gram Panchayat tenants.
//
// The package is organised around a few small pieces:
//
//   - Plan and the plan catalog: priced bundles of gated features with a
//     billing duration counted in calendar months.
//   - Subscription and the store contracts (PlanStore, SubscriptionStore,
//     PaymentStore, EventStore, TenantDirectory). MemoryStore implements all of
//     them; the Postgres implementation lives in svc/pgstore.
//   - IsFeatureAllowed, a pure decision over a subscription snapshot.
//   - Service, which exposes the administrative operations (AssignPlan,
//     CancelSubscription, GetActiveSubscription) and the cached read path used
//     by the access middleware.
//   - Gateway, the payment provider adapter. StripeGateway and PaddleGateway
//     are provided.
//   - Reconciler, which verifies provider webhooks and applies them to the
//     stores idempotently.
//
// # Feature gating
//
//	sub, err := svc.GetActiveSubscription(ctx, tenantID)
//	if err != nil {
//		return err
//	}
//	if !subscription.IsFeatureAllowed(sub, subscription.FeatureCertificates) {
//		// deny
//	}
//
// A subscription grants nothing once its current period has ended, even when
// the stored status is still ACTIVE. Expiry is evaluated at decision time.
//
// # Webhooks
//
//	rec := subscription.NewReconciler(gateway, svc, store,
//		subscription.WithEventStore(store),
//		subscription.WithReconcilerLogger(log),
//	)
//	ev, err := rec.HandleWebhook(ctx, body, r.Header.Get(gateway.SignatureHeader()))
//
// Events are keyed on provider identifiers (external subscription id, invoice
// id, event id) so redelivered or concurrently delivered events do not create
// duplicate rows.
package subscription
