package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/audit"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/svc/access"
	"github.com/dmitrymomot/gpportal/svc/billing"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string { return subscription.ProviderStripe }

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

type webhookCall struct {
	provider, eventType, outcome string
}

type recorder struct {
	calls []webhookCall
}

func (r *recorder) WebhookEvent(provider, eventType, outcome string) {
	r.calls = append(r.calls, webhookCall{provider, eventType, outcome})
}

type fixture struct {
	store    *subscription.MemoryStore
	svc      subscription.Service
	gateway  *mockGateway
	metrics  *recorder
	audit    *audit.MemoryStorage
	tenantID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := subscription.NewMemoryStore()
	for _, p := range []subscription.Plan{
		{
			ID:              "basic",
			Name:            "Basic",
			Price:           subscription.Money{Amount: 49900, Currency: "INR"},
			Duration:        1,
			Features:        []subscription.Feature{subscription.FeatureCertificates},
			ExternalPriceID: "price_basic",
			Active:          true,
		},
		{
			ID:       "legacy",
			Name:     "Legacy",
			Price:    subscription.Money{Amount: 9900, Currency: "INR"},
			Duration: 1,
			Features: []subscription.Feature{subscription.FeatureReports},
			Active:   false,
		},
	} {
		require.NoError(t, store.CreatePlan(ctx, &p))
	}

	f := &fixture{
		store:    store,
		gateway:  &mockGateway{},
		metrics:  &recorder{},
		audit:    audit.NewMemoryStorage(),
		tenantID: uuid.New(),
	}
	store.AddTenant(f.tenantID)
	f.svc = subscription.NewService(store, store, store,
		subscription.WithGateway(f.gateway),
		subscription.WithChangeHook(audit.SubscriptionHook(audit.NewLogger(f.audit), nil)),
	)
	return f
}

// router mounts the billing routers behind a middleware that injects sess.
func (f *fixture) router(sess *session.Session) http.Handler {
	cfg := billing.Config{
		SuccessURL:      "https://gp.example/ok",
		CancelURL:       "https://gp.example/cancel",
		PortalReturnURL: "https://gp.example/billing",
		MaxWebhookBytes: 1024,
	}
	rec := subscription.NewReconciler(f.gateway, f.svc, f.store, subscription.WithEventStore(f.store))
	svc := billing.NewService(f.svc, access.New(f.svc), cfg,
		billing.WithReconciler(rec),
		billing.WithPayments(f.store),
		billing.WithTenants(f.store),
		billing.WithMetrics(f.metrics),
		billing.WithAudit(audit.NewLogger(f.audit), f.audit),
	)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess != nil {
				r = r.WithContext(session.WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Mount("/billing", svc.Handle())
	r.Mount("/admin", svc.Admin())
	return r
}

func (f *fixture) gpAdmin() *session.Session {
	return &session.Session{ID: uuid.New(), UserID: uuid.New(), TenantID: &f.tenantID, Role: rbac.GPAdmin, ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fixture) gpStaff() *session.Session {
	return &session.Session{ID: uuid.New(), UserID: uuid.New(), TenantID: &f.tenantID, Role: rbac.GPStaff, ExpiresAt: time.Now().Add(time.Hour)}
}

func superAdmin() *session.Session {
	return &session.Session{ID: uuid.New(), UserID: uuid.New(), Role: rbac.SuperAdmin, ExpiresAt: time.Now().Add(time.Hour)}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string              `json:"code"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func newWebhookRequest(payload, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
