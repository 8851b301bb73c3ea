package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// Notifier is told about reconciliation outcomes that people should see.
// Failures are logged and never fail the webhook.
type Notifier interface {
	PaymentReceived(ctx context.Context, payment *Payment) error
	CatalogDrift(ctx context.Context, event *Event) error
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithEventStore records processed events so redeliveries are skipped
// before touching the other stores.
func WithEventStore(store EventStore) ReconcilerOption {
	return func(r *Reconciler) {
		if store != nil {
			r.events = store
		}
	}
}

// WithNotifier sets the notifier for receipts and catalog drift alerts.
func WithNotifier(n Notifier) ReconcilerOption {
	return func(r *Reconciler) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithReconcilerLogger sets the reconciler logger.
func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithReconcilerClock overrides the time source.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconciler applies verified provider events to local state.
// Every transition is keyed on provider identifiers, so applying the same
// event twice, or two copies concurrently, leaves one row per natural key.
type Reconciler struct {
	gateway  Gateway
	svc      Service
	payments PaymentStore
	events   EventStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconciler creates a Reconciler.
// Panics if a required dependency is nil.
func NewReconciler(gateway Gateway, svc Service, payments PaymentStore, opts ...ReconcilerOption) *Reconciler {
	if gateway == nil {
		panic("subscription: Gateway is required")
	}
	if svc == nil {
		panic("subscription: Service is required")
	}
	if payments == nil {
		panic("subscription: PaymentStore is required")
	}
	r := &Reconciler{
		gateway:  gateway,
		svc:      svc,
		payments: payments,
		logger:   logger.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Provider returns the name of the gateway whose webhooks are handled.
func (r *Reconciler) Provider() string { return r.gateway.Name() }

// SignatureHeader returns the header carrying the webhook signature.
func (r *Reconciler) SignatureHeader() string { return r.gateway.SignatureHeader() }

// HandleWebhook verifies payload and applies it. The returned event is nil
// only when the payload could not be verified or decoded. A bad signature
// returns ErrSignature; a verified payload that fails to decode returns
// ErrReconcile. Redelivered events that were already applied return the
// event and a nil error.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	ev, err := r.gateway.ParseWebhook(ctx, payload, signature)
	if errors.Is(err, ErrSignature) {
		r.logger.WarnContext(ctx, "webhook rejected",
			logger.Provider(r.gateway.Name()),
			logger.Error(err),
		)
		return nil, err
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "webhook payload could not be decoded",
			logger.Provider(r.gateway.Name()),
			logger.Error(err),
		)
		return nil, errors.Join(ErrReconcile, err)
	}

	log := r.logger.With(
		logger.Provider(ev.Provider),
		logger.EventID(ev.ID),
		logger.EventType(ev.ProviderType),
	)

	if r.events != nil && ev.ID != "" {
		done, err := r.events.IsProcessed(ctx, ev.Provider, ev.ID)
		if err != nil {
			log.WarnContext(ctx, "event ledger lookup failed", logger.Error(err))
		} else if done {
			log.DebugContext(ctx, "webhook event already processed")
			return ev, nil
		}
	}

	if err := r.Reconcile(ctx, ev); err != nil {
		return ev, err
	}

	if r.events != nil && ev.ID != "" && ev.Type != "" {
		if err := r.events.MarkProcessed(ctx, ev.Provider, ev.ID, ev.Type, r.now()); err != nil {
			log.WarnContext(ctx, "event ledger write failed", logger.Error(err))
		}
	}
	return ev, nil
}

// Reconcile applies a verified event.
func (r *Reconciler) Reconcile(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventCheckoutCompleted:
		return r.applyCheckout(ctx, ev)
	case EventInvoicePaymentSucceeded:
		return r.recordPayment(ctx, ev)
	case EventSubscriptionUpdated:
		return r.applySubscriptionUpdate(ctx, ev)
	default:
		r.logger.DebugContext(ctx, "webhook event ignored",
			logger.Provider(ev.Provider),
			logger.EventID(ev.ID),
			logger.EventType(ev.ProviderType),
		)
		return nil
	}
}

func (r *Reconciler) applyCheckout(ctx context.Context, ev *Event) error {
	tenantID, err := uuid.Parse(ev.TenantID)
	if err != nil {
		return errors.Join(ErrReconcile, ErrMissingTenantID, err)
	}

	externalID := ev.ExternalSubscriptionID
	if externalID == "" {
		externalID = ev.ObjectID
	}
	if externalID == "" {
		return errors.Join(ErrReconcile, ErrMissingExternalID)
	}

	priceID := ev.ExternalPriceID
	periodEnd := ev.CurrentPeriodEnd
	customerID := ev.ExternalCustomerID
	if ev.ExternalSubscriptionID != "" && (priceID == "" || periodEnd.IsZero()) {
		remote, err := r.gateway.FetchSubscription(ctx, ev.ExternalSubscriptionID)
		if err != nil {
			return errors.Join(ErrReconcile, err)
		}
		if priceID == "" {
			priceID = remote.PriceID
		}
		if periodEnd.IsZero() {
			periodEnd = remote.CurrentPeriodEnd
		}
		if customerID == "" {
			customerID = remote.CustomerID
		}
	}

	plan, err := r.svc.GetPlanByExternalPriceID(ctx, priceID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			r.logger.ErrorContext(ctx, "checkout references a price missing from the plan catalog",
				logger.Provider(ev.Provider),
				logger.EventID(ev.ID),
				logger.ExternalID(externalID),
				"price_id", priceID,
				logger.Error(err),
			)
			if r.notifier != nil {
				if nerr := r.notifier.CatalogDrift(ctx, ev); nerr != nil {
					r.logger.WarnContext(ctx, "catalog drift notification failed", logger.Error(nerr))
				}
			}
			return err
		}
		return errors.Join(ErrReconcile, err)
	}

	if periodEnd.IsZero() {
		periodEnd = plan.PeriodEnd(r.now())
	}

	sub, err := r.svc.UpsertFromPayment(ctx, UpsertParams{
		TenantID:         tenantID,
		PlanID:           plan.ID,
		Provider:         ev.Provider,
		ExternalID:       externalID,
		CustomerID:       customerID,
		Status:           StatusActive,
		CurrentPeriodEnd: periodEnd,
		EventAt:          ev.OccurredAt,
	})
	if errors.Is(err, ErrInvalidTransition) {
		r.dropTransition(ctx, ev, externalID, err)
		return nil
	}
	if err != nil {
		return errors.Join(ErrReconcile, err)
	}

	r.logger.InfoContext(ctx, "subscription activated from checkout",
		logger.TenantID(sub.TenantID),
		logger.SubscriptionID(sub.ID),
		logger.PlanID(plan.ID),
		logger.Provider(ev.Provider),
		logger.ExternalID(externalID),
	)
	return nil
}

func (r *Reconciler) recordPayment(ctx context.Context, ev *Event) error {
	if ev.PaymentRef == "" {
		return errors.Join(ErrReconcile, ErrMissingPaymentRef)
	}

	var sub *Subscription
	if ev.ExternalSubscriptionID != "" {
		s, err := r.lookupExternal(ctx, ev.Provider, ev.ExternalSubscriptionID)
		if err != nil {
			return errors.Join(ErrReconcile, err)
		}
		sub = s
	}

	tenantID, err := uuid.Parse(ev.TenantID)
	if err != nil {
		if sub == nil {
			return errors.Join(ErrReconcile, ErrMissingTenantID)
		}
		tenantID = sub.TenantID
	}

	paidAt := ev.PaidAt
	if paidAt.IsZero() {
		paidAt = ev.OccurredAt
	}
	if paidAt.IsZero() {
		paidAt = r.now()
	}

	payment := &Payment{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Amount:      ev.Amount,
		Provider:    ev.Provider,
		ExternalRef: ev.PaymentRef,
		PaidAt:      paidAt,
	}
	if sub != nil && sub.TenantID == tenantID {
		id := sub.ID
		payment.SubscriptionID = &id
	}

	created, err := r.payments.RecordPayment(ctx, payment)
	if err != nil {
		return errors.Join(ErrReconcile, fmt.Errorf("record payment: %w", err))
	}
	if !created {
		r.logger.DebugContext(ctx, "payment already recorded",
			logger.Provider(ev.Provider),
			logger.ExternalID(ev.PaymentRef),
		)
		return nil
	}

	r.logger.InfoContext(ctx, "payment recorded",
		logger.TenantID(tenantID),
		logger.Provider(ev.Provider),
		logger.ExternalID(ev.PaymentRef),
		"amount", ev.Amount.String(),
	)
	if r.notifier != nil {
		if err := r.notifier.PaymentReceived(ctx, payment); err != nil {
			r.logger.WarnContext(ctx, "payment receipt notification failed",
				logger.TenantID(tenantID),
				logger.Error(err),
			)
		}
	}
	return nil
}

func (r *Reconciler) applySubscriptionUpdate(ctx context.Context, ev *Event) error {
	if ev.ExternalSubscriptionID == "" {
		return errors.Join(ErrReconcile, ErrMissingExternalID)
	}

	sub, err := r.lookupExternal(ctx, ev.Provider, ev.ExternalSubscriptionID)
	if err != nil {
		return errors.Join(ErrReconcile, err)
	}
	if sub == nil {
		r.logger.WarnContext(ctx, "update for unknown subscription dropped",
			logger.Provider(ev.Provider),
			logger.EventID(ev.ID),
			logger.ExternalID(ev.ExternalSubscriptionID),
		)
		return nil
	}
	if sub.Status.Terminal() && (ev.Status == sub.Status || !ev.Status.Valid()) {
		r.logger.DebugContext(ctx, "update for closed subscription ignored",
			logger.SubscriptionID(sub.ID),
			logger.EventID(ev.ID),
			"status", string(sub.Status),
		)
		return nil
	}

	params := UpsertParams{
		TenantID:         sub.TenantID,
		PlanID:           sub.PlanID,
		Provider:         sub.Provider,
		ExternalID:       sub.ExternalID,
		CustomerID:       ev.ExternalCustomerID,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		EventAt:          ev.OccurredAt,
	}
	if ev.Status.Valid() {
		params.Status = ev.Status
	}
	if !ev.CurrentPeriodEnd.IsZero() {
		params.CurrentPeriodEnd = ev.CurrentPeriodEnd
	}
	if ev.ExternalPriceID != "" {
		plan, err := r.svc.GetPlanByExternalPriceID(ctx, ev.ExternalPriceID)
		switch {
		case err == nil:
			params.PlanID = plan.ID
		case errors.Is(err, ErrPlanNotFound):
			r.logger.WarnContext(ctx, "subscription moved to a price missing from the plan catalog, keeping plan",
				logger.SubscriptionID(sub.ID),
				"price_id", ev.ExternalPriceID,
			)
		default:
			return errors.Join(ErrReconcile, err)
		}
	}

	updated, err := r.svc.UpsertFromPayment(ctx, params)
	if errors.Is(err, ErrInvalidTransition) {
		r.dropTransition(ctx, ev, sub.ExternalID, err)
		return nil
	}
	if err != nil {
		return errors.Join(ErrReconcile, err)
	}
	r.logger.InfoContext(ctx, "subscription updated from provider",
		logger.TenantID(updated.TenantID),
		logger.SubscriptionID(updated.ID),
		"status", string(updated.Status),
	)
	return nil
}

// dropTransition logs an event that would move a closed subscription.
// Returning nil lets the ledger mark it processed so redeliveries stop.
func (r *Reconciler) dropTransition(ctx context.Context, ev *Event, externalID string, err error) {
	r.logger.WarnContext(ctx, "event would reopen a closed subscription, dropped",
		logger.Provider(ev.Provider),
		logger.EventID(ev.ID),
		logger.EventType(string(ev.Type)),
		logger.ExternalID(externalID),
		"status", string(ev.Status),
		logger.Error(err),
	)
}

func (r *Reconciler) lookupExternal(ctx context.Context, provider, externalID string) (*Subscription, error) {
	sub, err := r.svc.GetByExternalID(ctx, provider, externalID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sub, err
}
