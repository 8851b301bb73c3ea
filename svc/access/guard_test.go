package access_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/metrics"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/svc/access"
)

var now = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) CachedActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, tenantID)
	sub, _ := args.Get(0).(*subscription.Subscription)
	return sub, args.Error(1)
}

func (m *mockSource) GetActiveSubscription(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, tenantID)
	sub, _ := args.Get(0).(*subscription.Subscription)
	return sub, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) GateDecision(feature, decision string) {
	m.Called(feature, decision)
}

func basicSubscription(tenantID uuid.UUID) *subscription.Subscription {
	return &subscription.Subscription{
		ID:               uuid.New(),
		TenantID:         tenantID,
		PlanID:           "basic",
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: now.AddDate(0, 1, 0),
		Plan: &subscription.Plan{
			ID:       "basic",
			Name:     "Basic",
			Features: []subscription.Feature{subscription.FeatureCertificates},
		},
	}
}

func newSession(role rbac.Role, tenantID *uuid.UUID) *session.Session {
	return &session.Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TenantID:  tenantID,
		Role:      role,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
}

// okHandler echoes what the guard stored in the context.
func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := rbac.RoleFromContext(r.Context())
		assert.True(t, ok)
		w.Header().Set("X-Role", role.String())
		if sub, ok := subscription.FromContext(r.Context()); ok {
			w.Header().Set("X-Plan", sub.PlanID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func serve(mw func(http.Handler) http.Handler, h http.Handler, sess *session.Session, accept string) *httptest.ResponseRecorder {
	return serveMethod(http.MethodGet, mw, h, sess, accept)
}

func serveMethod(method string, mw func(http.Handler) http.Handler, h http.Handler, sess *session.Session, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/certificates?page=2", nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if sess != nil {
		req = req.WithContext(session.WithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	mw(h).ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestNew_PanicsWithoutSource(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { access.New(nil) })
}

func TestGuard_Unauthenticated(t *testing.T) {
	t.Parallel()

	guard := access.New(&mockSource{}, access.WithClock(func() time.Time { return now }))
	mw := guard.RequireAuth()

	t.Run("api clients get 401", func(t *testing.T) {
		t.Parallel()
		rec := serve(mw, okHandler(t), nil, "application/json")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", errorCode(t, rec))
	})

	t.Run("browsers are redirected to login", func(t *testing.T) {
		t.Parallel()
		rec := serve(mw, okHandler(t), nil, "text/html,application/xhtml+xml")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fcertificates%3Fpage%3D2", rec.Header().Get("Location"))
	})
}

func TestGuard_Roles(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	guard := access.New(&mockSource{})
	mw := guard.RequireRole(rbac.GPAdmin)

	tests := []struct {
		name string
		sess *session.Session
		want int
	}{
		{name: "gp admin allowed", sess: newSession(rbac.GPAdmin, &tenantID), want: http.StatusOK},
		{name: "gp staff forbidden", sess: newSession(rbac.GPStaff, &tenantID), want: http.StatusForbidden},
		{name: "super admin always allowed", sess: newSession(rbac.SuperAdmin, nil), want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(mw, okHandler(t), tt.sess, "")
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, tt.sess.Role.String(), rec.Header().Get("X-Role"))
			}
		})
	}
}

func TestGuard_Features(t *testing.T) {
	t.Parallel()

	t.Run("plan includes feature", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		src := &mockSource{}
		src.On("CachedActiveSubscription", mock.Anything, tenantID).Return(basicSubscription(tenantID), nil)
		rec := &mockRecorder{}
		rec.On("GateDecision", string(subscription.FeatureCertificates), metrics.DecisionAllowed).Once()

		guard := access.New(src, access.WithClock(func() time.Time { return now }), access.WithMetrics(rec))
		res := serve(guard.RequireFeature(subscription.FeatureCertificates), okHandler(t), newSession(rbac.GPStaff, &tenantID), "")

		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "basic", res.Header().Get("X-Plan"))
		src.AssertExpectations(t)
		rec.AssertExpectations(t)
	})

	t.Run("feature not in plan", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		src := &mockSource{}
		src.On("CachedActiveSubscription", mock.Anything, tenantID).Return(basicSubscription(tenantID), nil)

		guard := access.New(src, access.WithClock(func() time.Time { return now }))
		res := serve(guard.RequireFeature(subscription.FeatureStaff), okHandler(t), newSession(rbac.GPAdmin, &tenantID), "text/html")

		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.Equal(t, "feature_not_in_plan", errorCode(t, res))
	})

	t.Run("no subscription redirects browsers to billing", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		src := &mockSource{}
		src.On("CachedActiveSubscription", mock.Anything, tenantID).Return(nil, nil)

		guard := access.New(src, access.WithBillingURL("/billing/plans"))
		res := serve(guard.RequireFeature(subscription.FeatureCertificates), okHandler(t), newSession(rbac.GPAdmin, &tenantID), "text/html")

		assert.Equal(t, http.StatusSeeOther, res.Code)
		assert.Equal(t, "/billing/plans", res.Header().Get("Location"))
	})

	t.Run("no subscription is 402 for api clients", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		src := &mockSource{}
		src.On("CachedActiveSubscription", mock.Anything, tenantID).Return(nil, nil)

		guard := access.New(src)
		res := serve(guard.RequireFeature(subscription.FeatureCertificates), okHandler(t), newSession(rbac.GPAdmin, &tenantID), "application/json")

		assert.Equal(t, http.StatusPaymentRequired, res.Code)
		assert.Equal(t, "subscription_required", errorCode(t, res))
	})

	t.Run("lapsed subscription is treated as absent", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		sub := basicSubscription(tenantID)
		sub.CurrentPeriodEnd = now.Add(-time.Minute)
		src := &mockSource{}
		src.On("CachedActiveSubscription", mock.Anything, tenantID).Return(sub, nil)

		guard := access.New(src, access.WithClock(func() time.Time { return now }))
		res := serve(guard.RequireFeature(subscription.FeatureCertificates), okHandler(t), newSession(rbac.GPStaff, &tenantID), "")

		assert.Equal(t, http.StatusPaymentRequired, res.Code)
	})

	t.Run("super admin bypasses the subscription check", func(t *testing.T) {
		t.Parallel()
		src := &mockSource{}
		rec := &mockRecorder{}
		rec.On("GateDecision", string(subscription.FeatureWarish), metrics.DecisionBypass).Once()

		guard := access.New(src, access.WithMetrics(rec))
		res := serve(guard.RequireFeature(subscription.FeatureWarish), okHandler(t), newSession(rbac.SuperAdmin, nil), "")

		assert.Equal(t, http.StatusOK, res.Code)
		src.AssertNotCalled(t, "CachedActiveSubscription", mock.Anything, mock.Anything)
		rec.AssertExpectations(t)
	})

	t.Run("role check runs before the subscription check", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		src := &mockSource{}

		guard := access.New(src)
		res := serve(guard.RequireFeature(subscription.FeatureStaff, rbac.GPAdmin), okHandler(t), newSession(rbac.GPStaff, &tenantID), "")

		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.Equal(t, "forbidden", errorCode(t, res))
		src.AssertNotCalled(t, "CachedActiveSubscription", mock.Anything, mock.Anything)
	})

	t.Run("lookup failure is a server error", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		src := &mockSource{}
		src.On("CachedActiveSubscription", mock.Anything, tenantID).Return(nil, errors.New("db down"))

		guard := access.New(src)
		res := serve(guard.RequireFeature(subscription.FeatureCertificates), okHandler(t), newSession(rbac.GPAdmin, &tenantID), "")

		assert.Equal(t, http.StatusInternalServerError, res.Code)
	})
}

func TestGuard_WritesReadTheStore(t *testing.T) {
	t.Parallel()

	t.Run("mutating methods bypass the cache", func(t *testing.T) {
		t.Parallel()
		tenantID := uuid.New()
		src := &mockSource{}
		src.On("GetActiveSubscription", mock.Anything, tenantID).Return(basicSubscription(tenantID), nil).Once()

		guard := access.New(src, access.WithClock(func() time.Time { return now }))
		res := serveMethod(http.MethodPost, guard.RequireFeature(subscription.FeatureCertificates), okHandler(t), newSession(rbac.GPStaff, &tenantID), "")

		assert.Equal(t, http.StatusOK, res.Code)
		src.AssertExpectations(t)
		src.AssertNotCalled(t, "CachedActiveSubscription", mock.Anything, mock.Anything)
	})

	t.Run("store change under a warm cache", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := subscription.NewMemoryStore()
		require.NoError(t, store.CreatePlan(ctx, &subscription.Plan{
			ID:       "basic",
			Name:     "Basic",
			Price:    subscription.Money{Amount: 49900, Currency: "INR"},
			Duration: 1,
			Features: []subscription.Feature{subscription.FeatureCertificates},
			Active:   true,
		}))
		tenantID := uuid.New()
		store.AddTenant(tenantID)
		svc := subscription.NewService(store, store, store,
			subscription.WithClock(func() time.Time { return now }),
			subscription.WithFeatureCache(16, time.Hour),
		)
		sub, err := svc.AssignPlan(ctx, tenantID, "basic")
		require.NoError(t, err)

		guard := access.New(svc, access.WithClock(func() time.Time { return now }))
		mw := guard.RequireFeature(subscription.FeatureCertificates)
		sess := newSession(rbac.GPAdmin, &tenantID)

		require.Equal(t, http.StatusOK, serve(mw, okHandler(t), sess, "").Code)

		// written behind the service's back, so the cache is not invalidated
		_, err = store.UpdateStatus(ctx, sub.ID, subscription.StatusCancelled, now)
		require.NoError(t, err)

		res := serveMethod(http.MethodPost, mw, okHandler(t), sess, "application/json")
		assert.Equal(t, http.StatusPaymentRequired, res.Code)
		assert.Equal(t, "subscription_required", errorCode(t, res))

		res = serveMethod(http.MethodDelete, mw, okHandler(t), sess, "text/html")
		assert.Equal(t, http.StatusSeeOther, res.Code)

		assert.Equal(t, http.StatusOK, serve(mw, okHandler(t), sess, "").Code, "reads may serve the cached entry until it expires")
	})
}
