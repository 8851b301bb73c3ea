package subscription

import "context"

type subscriptionContextKey struct{}

// WithSubscription stores the resolved subscription in ctx.
func WithSubscription(ctx context.Context, sub *Subscription) context.Context {
	return context.WithValue(ctx, subscriptionContextKey{}, sub)
}

// FromContext returns the subscription stored by WithSubscription.
func FromContext(ctx context.Context) (*Subscription, bool) {
	sub, ok := ctx.Value(subscriptionContextKey{}).(*Subscription)
	return sub, ok && sub != nil
}
