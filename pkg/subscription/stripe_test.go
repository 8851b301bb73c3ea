package subscription_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

const stripeTestSecret = "whsec_test_secret"

func newStripeGateway(t *testing.T) *subscription.StripeGateway {
	t.Helper()
	gw, err := subscription.NewStripeGateway(subscription.StripeConfig{
		APIKey:        "sk_test_123",
		WebhookSecret: stripeTestSecret,
	})
	require.NoError(t, err)
	return gw
}

func signStripe(payload string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    stripeTestSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestNewStripeGateway_RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := subscription.NewStripeGateway(subscription.StripeConfig{WebhookSecret: "x"})
	assert.ErrorIs(t, err, subscription.ErrMissingAPIKey)

	_, err = subscription.NewStripeGateway(subscription.StripeConfig{APIKey: "x"})
	assert.ErrorIs(t, err, subscription.ErrMissingWebhookSecret)
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newStripeGateway(t)
	tenantID := uuid.New()

	assert.Equal(t, "stripe", gw.Name())
	assert.Equal(t, "Stripe-Signature", gw.SignatureHeader())

	t.Run("checkout session completed", func(t *testing.T) {
		t.Parallel()
		payload := fmt.Sprintf(`{
			"id": "evt_checkout",
			"object": "event",
			"type": "checkout.session.completed",
			"created": 1736935200,
			"data": {"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"mode": "subscription",
				"client_reference_id": %q,
				"customer": "cus_1",
				"subscription": "sub_1",
				"metadata": {"tenant_id": %q, "plan_id": "basic", "price_id": "price_basic"}
			}}
		}`, tenantID, tenantID)

		ev, err := gw.ParseWebhook(ctx, []byte(payload), signStripe(payload))
		require.NoError(t, err)
		assert.Equal(t, "evt_checkout", ev.ID)
		assert.Equal(t, subscription.EventCheckoutCompleted, ev.Type)
		assert.Equal(t, "cs_test_1", ev.ObjectID)
		assert.Equal(t, tenantID.String(), ev.TenantID)
		assert.Equal(t, "price_basic", ev.ExternalPriceID)
		assert.Equal(t, "sub_1", ev.ExternalSubscriptionID)
		assert.Equal(t, "cus_1", ev.ExternalCustomerID)
		assert.Equal(t, time.Unix(1736935200, 0).UTC(), ev.OccurredAt)
	})

	t.Run("invoice paid with subscription details", func(t *testing.T) {
		t.Parallel()
		payload := fmt.Sprintf(`{
			"id": "evt_invoice",
			"object": "event",
			"type": "invoice.payment_succeeded",
			"created": 1736935300,
			"data": {"object": {
				"id": "in_1",
				"object": "invoice",
				"customer": "cus_1",
				"amount_paid": 49900,
				"currency": "inr",
				"status_transitions": {"paid_at": 1736935290},
				"parent": {"subscription_details": {"subscription": "sub_1", "metadata": {"tenant_id": %q}}}
			}}
		}`, tenantID)

		ev, err := gw.ParseWebhook(ctx, []byte(payload), signStripe(payload))
		require.NoError(t, err)
		assert.Equal(t, subscription.EventInvoicePaymentSucceeded, ev.Type)
		assert.Equal(t, "in_1", ev.PaymentRef)
		assert.Equal(t, subscription.Money{Amount: 49900, Currency: "INR"}, ev.Amount)
		assert.Equal(t, "sub_1", ev.ExternalSubscriptionID)
		assert.Equal(t, tenantID.String(), ev.TenantID)
		assert.Equal(t, time.Unix(1736935290, 0).UTC(), ev.PaidAt)
	})

	t.Run("invoice with flat subscription field", func(t *testing.T) {
		t.Parallel()
		payload := `{
			"id": "evt_invoice_old",
			"object": "event",
			"type": "invoice.paid",
			"created": 1736935300,
			"data": {"object": {"id": "in_2", "object": "invoice", "subscription": "sub_2", "amount_paid": 100, "currency": "inr"}}
		}`

		ev, err := gw.ParseWebhook(ctx, []byte(payload), signStripe(payload))
		require.NoError(t, err)
		assert.Equal(t, "sub_2", ev.ExternalSubscriptionID)
		assert.Empty(t, ev.TenantID)
	})

	t.Run("subscription updated", func(t *testing.T) {
		t.Parallel()
		payload := `{
			"id": "evt_sub",
			"object": "event",
			"type": "customer.subscription.updated",
			"created": 1736935400,
			"data": {"object": {
				"id": "sub_1",
				"object": "subscription",
				"status": "past_due",
				"customer": "cus_1",
				"items": {"object": "list", "data": [
					{"id": "si_1", "object": "subscription_item", "current_period_end": 1739613600, "price": {"id": "price_pro", "object": "price"}}
				]}
			}}
		}`

		ev, err := gw.ParseWebhook(ctx, []byte(payload), signStripe(payload))
		require.NoError(t, err)
		assert.Equal(t, subscription.EventSubscriptionUpdated, ev.Type)
		assert.Equal(t, "sub_1", ev.ExternalSubscriptionID)
		assert.Equal(t, subscription.StatusPastDue, ev.Status)
		assert.Equal(t, "price_pro", ev.ExternalPriceID)
		assert.Equal(t, time.Unix(1739613600, 0).UTC(), ev.CurrentPeriodEnd)
	})

	t.Run("subscription deleted maps to cancelled", func(t *testing.T) {
		t.Parallel()
		payload := `{
			"id": "evt_del",
			"object": "event",
			"type": "customer.subscription.deleted",
			"created": 1736935500,
			"data": {"object": {"id": "sub_1", "object": "subscription", "status": "canceled"}}
		}`

		ev, err := gw.ParseWebhook(ctx, []byte(payload), signStripe(payload))
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, ev.Status)
	})

	t.Run("other events are passed through untyped", func(t *testing.T) {
		t.Parallel()
		payload := `{"id": "evt_other", "object": "event", "type": "customer.created", "created": 1736935500, "data": {"object": {"id": "cus_9", "object": "customer"}}}`

		ev, err := gw.ParseWebhook(ctx, []byte(payload), signStripe(payload))
		require.NoError(t, err)
		assert.Empty(t, ev.Type)
		assert.Equal(t, "customer.created", ev.ProviderType)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		t.Parallel()
		payload := `{"id": "evt_x", "object": "event", "type": "invoice.paid", "data": {"object": {}}}`

		_, err := gw.ParseWebhook(ctx, []byte(payload), "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, subscription.ErrSignature)

		_, err = gw.ParseWebhook(ctx, []byte(payload), "")
		assert.ErrorIs(t, err, subscription.ErrSignature)
	})

	t.Run("signed but malformed payload is not a signature failure", func(t *testing.T) {
		t.Parallel()
		payload := `{"id": "evt_z", "object": "event", "type": "invoice.paid", "data": "oops"}`

		_, err := gw.ParseWebhook(ctx, []byte(payload), signStripe(payload))
		require.Error(t, err)
		assert.NotErrorIs(t, err, subscription.ErrSignature)
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		t.Parallel()
		payload := `{"id": "evt_y", "object": "event", "type": "invoice.paid", "data": {"object": {"id": "in_3"}}}`
		sig := signStripe(payload)

		_, err := gw.ParseWebhook(ctx, []byte(payload+" "), sig)
		assert.ErrorIs(t, err, subscription.ErrSignature)
	})
}
