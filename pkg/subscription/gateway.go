package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Gateway adapts a payment provider.
type Gateway interface {
	// Name is the provider name stored on subscriptions and payments.
	Name() string
	// SignatureHeader is the request header carrying the webhook signature.
	SignatureHeader() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	FetchSubscription(ctx context.Context, externalID string) (*ProviderSubscription, error)
	CustomerPortal(ctx context.Context, sub *Subscription, returnURL string) (*PortalLink, error)
	// ParseWebhook verifies the signature over the raw payload and returns
	// the normalized event. Verification failures wrap ErrSignature.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest describes a hosted checkout for a plan.
type CheckoutRequest struct {
	TenantID   uuid.UUID
	Plan       *Plan
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is a hosted checkout created at the provider.
type CheckoutSession struct {
	ID        string    `json:"session_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// PortalLink is a provider-hosted self-service page.
type PortalLink struct {
	URL string `json:"url"`
}

// ProviderSubscription is the provider's view of a subscription.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	PriceID          string
	Status           Status
	CurrentPeriodEnd time.Time
}

// Event is a verified provider webhook normalized to a provider-independent
// shape. Fields that the event type does not carry are zero.
type Event struct {
	ID           string
	Provider     string
	Type         EventType
	ProviderType string
	OccurredAt   time.Time

	// ObjectID is the id of the provider object the event is about
	// (checkout session, invoice, transaction or subscription).
	ObjectID string

	TenantID               string
	ExternalPriceID        string
	ExternalSubscriptionID string
	ExternalCustomerID     string
	Status                 Status
	CurrentPeriodEnd       time.Time

	PaymentRef string
	Amount     Money
	PaidAt     time.Time
}

// Metadata keys written into provider objects at checkout.
const (
	MetaTenantID = "tenant_id"
	MetaPlanID   = "plan_id"
	MetaPriceID  = "price_id"
)
