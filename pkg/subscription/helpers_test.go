package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

var testNow = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func basicPlan() subscription.Plan {
	return subscription.Plan{
		ID:              "basic",
		Name:            "Basic",
		Price:           subscription.Money{Amount: 49900, Currency: "INR"},
		Duration:        1,
		Features:        []subscription.Feature{subscription.FeatureCertificates, subscription.FeatureSchemes},
		ExternalPriceID: "price_basic",
		Active:          true,
	}
}

func proPlan() subscription.Plan {
	return subscription.Plan{
		ID:              "pro",
		Name:            "Pro",
		Price:           subscription.Money{Amount: 499900, Currency: "INR"},
		Duration:        12,
		Features:        subscription.KnownFeatures(),
		ExternalPriceID: "price_pro",
		Active:          true,
	}
}

func legacyPlan() subscription.Plan {
	return subscription.Plan{
		ID:       "legacy",
		Name:     "Legacy",
		Price:    subscription.Money{Amount: 9900, Currency: "INR"},
		Duration: 1,
		Features: []subscription.Feature{subscription.FeatureReports},
		Active:   false,
	}
}

// seededStore returns a store with the basic, pro and legacy plans and one tenant.
func seededStore(t *testing.T) (*subscription.MemoryStore, uuid.UUID) {
	t.Helper()

	store := subscription.NewMemoryStore()
	ctx := context.Background()
	for _, p := range []subscription.Plan{basicPlan(), proPlan(), legacyPlan()} {
		require.NoError(t, store.CreatePlan(ctx, &p))
	}
	tenantID := uuid.New()
	store.AddTenant(tenantID)
	return store, tenantID
}

func newTestService(t *testing.T, opts ...subscription.ServiceOption) (subscription.Service, *subscription.MemoryStore, uuid.UUID) {
	t.Helper()

	store, tenantID := seededStore(t)
	opts = append([]subscription.ServiceOption{subscription.WithClock(fixedClock(testNow))}, opts...)
	svc := subscription.NewService(store, store, store, opts...)
	return svc, store, tenantID
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string { return "stripe" }

func (m *mockGateway) SignatureHeader() string { return "Stripe-Signature" }

func (m *mockGateway) CreateCheckout(ctx context.Context, req subscription.CheckoutRequest) (*subscription.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.CheckoutSession), args.Error(1)
}

func (m *mockGateway) FetchSubscription(ctx context.Context, externalID string) (*subscription.ProviderSubscription, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.ProviderSubscription), args.Error(1)
}

func (m *mockGateway) CustomerPortal(ctx context.Context, sub *subscription.Subscription, returnURL string) (*subscription.PortalLink, error) {
	args := m.Called(ctx, sub, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.PortalLink), args.Error(1)
}

func (m *mockGateway) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Event), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PaymentReceived(ctx context.Context, p *subscription.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockNotifier) CatalogDrift(ctx context.Context, ev *subscription.Event) error {
	return m.Called(ctx, ev).Error(0)
}
