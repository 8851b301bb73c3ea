// Package audit records who changed what in the portal.
//
// A Logger builds Events from the call site and the request context and
// hands them to a Storage. Subscription mutations reach it through
// SubscriptionHook, which plugs into the subscription service's change
// hooks:
//
//	writer := audit.NewAsyncWriter(store, audit.AsyncOptions{}, log)
//	defer writer.Close(ctx)
//	trail := audit.NewLogger(writer, audit.WithActorExtractor(actorFromSession))
//	subs := subscription.NewService(..., subscription.WithChangeHook(audit.SubscriptionHook(trail, log)))
//
// AsyncWriter batches events in the background so hooks never wait on the
// database.
package audit
