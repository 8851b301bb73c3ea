package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds configuration for the Stripe gateway.
type StripeConfig struct {
	APIKey        string        `env:"STRIPE_API_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	Tolerance     time.Duration `env:"STRIPE_WEBHOOK_TOLERANCE" envDefault:"5m"`
}

// StripeGateway implements Gateway on Stripe Checkout and Billing.
type StripeGateway struct {
	api    *client.API
	config StripeConfig
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway creates a Stripe gateway.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = webhook.DefaultTolerance
	}

	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &StripeGateway{api: api, config: cfg}, nil
}

func (g *StripeGateway) Name() string { return ProviderStripe }

func (g *StripeGateway) SignatureHeader() string { return "Stripe-Signature" }

// CreateCheckout creates a subscription-mode Checkout Session. Tenant, plan
// and price are written to both the session and the subscription metadata.
func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.Plan == nil || req.Plan.ExternalPriceID == "" {
		return nil, errors.Join(ErrValidation, ErrPlanNotPurchasable)
	}

	meta := map[string]string{
		MetaTenantID: req.TenantID.String(),
		MetaPlanID:   req.Plan.ID,
		MetaPriceID:  req.Plan.ExternalPriceID,
	}
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.Plan.ExternalPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.TenantID.String()),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("stripe checkout session: %w", err))
	}
	if sess.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	out := &CheckoutSession{ID: sess.ID, URL: sess.URL}
	if sess.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(sess.ExpiresAt, 0).UTC()
	}
	return out, nil
}

// FetchSubscription reads a subscription from Stripe.
func (g *StripeGateway) FetchSubscription(ctx context.Context, externalID string) (*ProviderSubscription, error) {
	sub, err := g.api.Subscriptions.Get(externalID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("stripe subscription %s: %w", externalID, err))
	}
	return stripeSubscriptionView(sub), nil
}

// CustomerPortal creates a Billing Portal session for the subscription's
// customer.
func (g *StripeGateway) CustomerPortal(ctx context.Context, sub *Subscription, returnURL string) (*PortalLink, error) {
	if sub == nil || sub.ExternalCustomerID == "" {
		return nil, errors.Join(ErrNotFound, ErrNoCustomerReference)
	}
	params := &stripe.BillingPortalSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(sub.ExternalCustomerID),
	}
	if returnURL != "" {
		params.ReturnURL = stripe.String(returnURL)
	}
	sess, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("stripe billing portal: %w", err))
	}
	if sess.URL == "" {
		return nil, ErrNoPortalURL
	}
	return &PortalLink{URL: sess.URL}, nil
}

func stripeSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the
// event. Unknown event types are returned with an empty Type.
func (g *StripeGateway) ParseWebhook(_ context.Context, payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.config.Tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if stripeSignatureError(err) {
			return nil, errors.Join(ErrSignature, err)
		}
		return nil, fmt.Errorf("decode stripe event: %w", err)
	}

	ev := &Event{
		ID:           event.ID,
		Provider:     ProviderStripe,
		ProviderType: string(event.Type),
		OccurredAt:   time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return ev, nil
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("parse checkout session: %w", err)
		}
		ev.Type = EventCheckoutCompleted
		ev.ObjectID = sess.ID
		ev.TenantID = sess.Metadata[MetaTenantID]
		if ev.TenantID == "" {
			ev.TenantID = sess.ClientReferenceID
		}
		ev.ExternalPriceID = sess.Metadata[MetaPriceID]
		if sess.Subscription != nil {
			ev.ExternalSubscriptionID = sess.Subscription.ID
		}
		if sess.Customer != nil {
			ev.ExternalCustomerID = sess.Customer.ID
		}

	case "invoice.payment_succeeded", "invoice.paid":
		var inv stripeInvoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("parse invoice: %w", err)
		}
		ev.Type = EventInvoicePaymentSucceeded
		ev.ObjectID = inv.ID
		ev.PaymentRef = inv.ID
		ev.Amount = Money{Amount: inv.AmountPaid, Currency: strings.ToUpper(inv.Currency)}
		ev.ExternalCustomerID = inv.Customer
		ev.ExternalSubscriptionID = inv.subscriptionID()
		ev.TenantID = inv.metadata()[MetaTenantID]
		if inv.StatusTransitions.PaidAt > 0 {
			ev.PaidAt = time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
		}

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("parse subscription: %w", err)
		}
		view := stripeSubscriptionView(&sub)
		ev.Type = EventSubscriptionUpdated
		ev.ObjectID = sub.ID
		ev.ExternalSubscriptionID = sub.ID
		ev.ExternalCustomerID = view.CustomerID
		ev.ExternalPriceID = view.PriceID
		ev.Status = view.Status
		ev.CurrentPeriodEnd = view.CurrentPeriodEnd
		ev.TenantID = sub.Metadata[MetaTenantID]
	}

	return ev, nil
}

func stripeSubscriptionView(sub *stripe.Subscription) *ProviderSubscription {
	view := &ProviderSubscription{
		ID:     sub.ID,
		Status: mapStripeStatus(string(sub.Status)),
	}
	if sub.Customer != nil {
		view.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item == nil {
				continue
			}
			if view.PriceID == "" && item.Price != nil {
				view.PriceID = item.Price.ID
			}
			end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			if item.CurrentPeriodEnd > 0 && end.After(view.CurrentPeriodEnd) {
				view.CurrentPeriodEnd = end
			}
		}
	}
	return view
}

// stripeInvoice covers both the flat "subscription" field of older API
// versions and the "parent.subscription_details" shape of newer ones.
type stripeInvoice struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	AmountPaid        int64             `json:"amount_paid"`
	Currency          string            `json:"currency"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
	Parent *struct {
		SubscriptionDetails *struct {
			Subscription string            `json:"subscription"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (i stripeInvoice) subscriptionID() string {
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil && i.Parent.SubscriptionDetails.Subscription != "" {
		return i.Parent.SubscriptionDetails.Subscription
	}
	return i.Subscription
}

func (i stripeInvoice) metadata() map[string]string {
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil && len(i.Parent.SubscriptionDetails.Metadata) > 0 {
		return i.Parent.SubscriptionDetails.Metadata
	}
	return i.Metadata
}

func mapStripeStatus(status string) Status {
	switch status {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled":
		return StatusCancelled
	case "incomplete_expired":
		return StatusExpired
	case "incomplete", "paused":
		return StatusIncomplete
	default:
		return ""
	}
}

