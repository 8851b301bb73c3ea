package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle gateway.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleGateway implements Gateway on Paddle Billing.
type PaddleGateway struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

var _ Gateway = (*PaddleGateway)(nil)

// NewPaddleGateway creates a Paddle gateway for the configured environment.
func NewPaddleGateway(config PaddleConfig) (*PaddleGateway, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, errors.Join(ErrInvalidEnvironment, fmt.Errorf("paddle environment %q", config.Environment))
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleGateway{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

func (g *PaddleGateway) Name() string { return ProviderPaddle }

func (g *PaddleGateway) SignatureHeader() string { return "Paddle-Signature" }

// CreateCheckout creates a transaction for the plan's catalog price and
// returns its hosted checkout URL.
func (g *PaddleGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.Plan == nil || req.Plan.ExternalPriceID == "" {
		return nil, errors.Join(ErrValidation, ErrPlanNotPurchasable)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.Plan.ExternalPriceID,
		Quantity: 1,
	})
	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			MetaTenantID: req.TenantID.String(),
			MetaPlanID:   req.Plan.ID,
			MetaPriceID:  req.Plan.ExternalPriceID,
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	tx, err := g.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("paddle transaction: %w", err))
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		ID:        tx.ID,
		URL:       *tx.Checkout.URL,
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC(),
	}, nil
}

// FetchSubscription reads a subscription from Paddle.
func (g *PaddleGateway) FetchSubscription(ctx context.Context, externalID string) (*ProviderSubscription, error) {
	sub, err := g.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: externalID,
	})
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("paddle subscription %s: %w", externalID, err))
	}

	view := &ProviderSubscription{
		ID:         sub.ID,
		CustomerID: sub.CustomerID,
		Status:     mapPaddleStatus(string(sub.Status)),
	}
	if len(sub.Items) > 0 {
		view.PriceID = sub.Items[0].Price.ID
	}
	if sub.CurrentBillingPeriod != nil {
		view.CurrentPeriodEnd = parsePaddleTime(sub.CurrentBillingPeriod.EndsAt)
	}
	return view, nil
}

// CustomerPortal creates a customer portal session scoped to the
// subscription.
func (g *PaddleGateway) CustomerPortal(ctx context.Context, sub *Subscription, returnURL string) (*PortalLink, error) {
	if sub == nil || sub.ExternalCustomerID == "" {
		return nil, errors.Join(ErrNotFound, ErrNoCustomerReference)
	}

	session, err := g.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID:      sub.ExternalCustomerID,
		SubscriptionIDs: []string{sub.ExternalID},
	})
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("paddle customer portal: %w", err))
	}
	if session.URLs.General.Overview == "" {
		return nil, ErrNoPortalURL
	}
	return &PortalLink{URL: session.URLs.General.Overview}, nil
}

// paddleEnvelope is the webhook notification body.
type paddleEnvelope struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// ParseWebhook verifies the Paddle-Signature header and normalizes the
// event. Unknown event types are returned with an empty Type.
func (g *PaddleGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set(g.SignatureHeader(), signature)

	valid, err := g.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrSignature, err)
	}
	if !valid {
		return nil, ErrSignature
	}

	var env paddleEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("parse paddle webhook: %w", err)
	}

	data := env.Data
	ev := &Event{
		ID:           env.EventID,
		Provider:     ProviderPaddle,
		ProviderType: env.EventType,
		OccurredAt:   parsePaddleTime(env.OccurredAt),
		ObjectID:     str(data, "id"),
	}
	custom := obj(data, "custom_data")
	ev.TenantID = str(custom, MetaTenantID)
	ev.ExternalCustomerID = str(data, "customer_id")

	switch env.EventType {
	case "transaction.completed":
		ev.Type = EventCheckoutCompleted
		ev.ExternalSubscriptionID = str(data, "subscription_id")
		ev.ExternalPriceID = firstItemPriceID(data)
		if ev.ExternalPriceID == "" {
			ev.ExternalPriceID = str(custom, MetaPriceID)
		}
		ev.CurrentPeriodEnd = parsePaddleTime(str(obj(data, "billing_period"), "ends_at"))

	case "transaction.paid":
		ev.Type = EventInvoicePaymentSucceeded
		ev.ExternalSubscriptionID = str(data, "subscription_id")
		ev.PaymentRef = ev.ObjectID
		totals := obj(obj(data, "details"), "totals")
		amount, _ := strconv.ParseInt(str(totals, "grand_total"), 10, 64)
		if amount == 0 {
			amount, _ = strconv.ParseInt(str(totals, "total"), 10, 64)
		}
		ev.Amount = Money{Amount: amount, Currency: strings.ToUpper(str(data, "currency_code"))}
		ev.PaidAt = parsePaddleTime(str(data, "billed_at"))

	case "subscription.created", "subscription.updated", "subscription.activated",
		"subscription.canceled", "subscription.past_due", "subscription.paused",
		"subscription.resumed", "subscription.trialing":
		ev.Type = EventSubscriptionUpdated
		ev.ExternalSubscriptionID = ev.ObjectID
		ev.ExternalPriceID = firstItemPriceID(data)
		ev.Status = mapPaddleStatus(str(data, "status"))
		ev.CurrentPeriodEnd = parsePaddleTime(str(obj(data, "current_billing_period"), "ends_at"))
	}

	return ev, nil
}

func mapPaddleStatus(status string) Status {
	switch strings.ToLower(status) {
	case "trialing":
		return StatusTrialing
	case "active":
		return StatusActive
	case "past_due", "paused":
		return StatusPastDue
	case "canceled", "cancelled":
		return StatusCancelled
	default:
		return ""
	}
}

// firstItemPriceID reads items[0].price.id, falling back to items[0].price_id.
func firstItemPriceID(data map[string]any) string {
	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	item, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	if id := str(obj(item, "price"), "id"); id != "" {
		return id
	}
	return str(item, "price_id")
}

func obj(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func parsePaddleTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
