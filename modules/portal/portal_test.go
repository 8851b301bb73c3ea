package portal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/modules/portal"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
	"github.com/dmitrymomot/gpportal/svc/access"
)

type fixture struct {
	subs     subscription.Service
	tenants  *tenant.Directory
	tenantID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := subscription.NewMemoryStore()
	plan := subscription.Plan{
		ID:       "pro",
		Name:     "Pro",
		Price:    subscription.Money{Amount: 99900, Currency: "INR"},
		Duration: 1,
		Features: []subscription.Feature{subscription.FeatureCertificates, subscription.FeatureStaff},
		Active:   true,
	}
	require.NoError(t, store.CreatePlan(ctx, &plan))

	gp := tenant.Tenant{ID: uuid.New(), Code: "123456", Name: "Rampur", Active: true}
	store.AddTenant(gp.ID)

	return &fixture{
		subs:     subscription.NewService(store, store, store),
		tenants:  tenant.NewDirectory(tenant.NewMemoryStore(gp)),
		tenantID: gp.ID,
	}
}

func (f *fixture) router(sess *session.Session, handlers map[string]portal.Mountable) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess != nil {
				r = r.WithContext(session.WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Mount("/", portal.Router(portal.RouterOptions{
		Guard:         access.New(f.subs),
		Subscriptions: f.subs,
		Tenants:       f.tenants,
		Handlers:      handlers,
	}))
	return r
}

func (f *fixture) session(role rbac.Role) *session.Session {
	s := &session.Session{ID: uuid.New(), UserID: uuid.New(), Role: role, ExpiresAt: time.Now().Add(time.Hour)}
	if role.RequiresTenant() {
		s.TenantID = &f.tenantID
	}
	return s
}

func get(t *testing.T, h http.Handler, path, accept string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func dashboardOf(t *testing.T, rec *httptest.ResponseRecorder) portal.Dashboard {
	t.Helper()
	var env struct {
		Data portal.Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func allowedSections(d portal.Dashboard) []string {
	var out []string
	for _, s := range d.Sections {
		if s.Allowed {
			out = append(out, s.Path)
		}
	}
	return out
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	t.Run("visible without a subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := get(t, f.router(f.session(rbac.GPStaff), nil), "/", "")
		require.Equal(t, http.StatusOK, rec.Code)

		d := dashboardOf(t, rec)
		assert.Equal(t, rbac.GPStaff, d.Role)
		require.NotNil(t, d.Tenant)
		assert.Equal(t, "Rampur", d.Tenant.Name)
		assert.Nil(t, d.Plan)
		assert.Empty(t, d.Features)
		assert.Empty(t, allowedSections(d))
		assert.Len(t, d.Sections, len(portal.Sections()))
	})

	t.Run("lists sections unlocked by the plan", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.subs.AssignPlan(context.Background(), f.tenantID, "pro")
		require.NoError(t, err)

		d := dashboardOf(t, get(t, f.router(f.session(rbac.GPAdmin), nil), "/", ""))
		require.NotNil(t, d.Plan)
		assert.Equal(t, "Pro", d.Plan.Name)
		assert.Equal(t, []string{"/certificates", "/staff"}, allowedSections(d))

		d = dashboardOf(t, get(t, f.router(f.session(rbac.GPStaff), nil), "/", ""))
		assert.Equal(t, []string{"/certificates"}, allowedSections(d), "staff section is admin only")
	})

	t.Run("super admin sees everything", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		d := dashboardOf(t, get(t, f.router(f.session(rbac.SuperAdmin), nil), "/", ""))
		assert.Nil(t, d.Tenant)
		assert.Len(t, allowedSections(d), len(portal.Sections()))
	})

	t.Run("anonymous browser is sent to login", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := get(t, f.router(nil, nil), "/", "text/html")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2F", rec.Header().Get("Location"))
	})
}

func TestSections(t *testing.T) {
	t.Parallel()

	t.Run("no subscription redirects browsers to billing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := get(t, f.router(f.session(rbac.GPAdmin), nil), "/certificates", "text/html,application/xhtml+xml")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/billing", rec.Header().Get("Location"))

		rec = get(t, f.router(f.session(rbac.GPAdmin), nil), "/certificates", "application/json")
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	})

	t.Run("plan gates each section", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.subs.AssignPlan(context.Background(), f.tenantID, "pro")
		require.NoError(t, err)
		h := f.router(f.session(rbac.GPStaff), nil)

		rec := get(t, h, "/certificates", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"feature":"CERTIFICATE_MGMT"`)
		assert.Contains(t, rec.Body.String(), f.tenantID.String())

		rec = get(t, h, "/assets", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "feature_not_in_plan")

		rec = get(t, h, "/staff", "")
		assert.Equal(t, http.StatusForbidden, rec.Code, "staff management is admin only")
	})

	t.Run("mounted section service", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.subs.AssignPlan(context.Background(), f.tenantID, "pro")
		require.NoError(t, err)

		certs := mountFunc(func() http.Handler {
			r := chi.NewRouter()
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("certificate " + chi.URLParam(r, "id")))
			})
			return r
		})
		h := f.router(f.session(rbac.GPAdmin), map[string]portal.Mountable{"/certificates": certs})

		rec := get(t, h, "/certificates/42", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "certificate 42", rec.Body.String())
	})
}

type mountFunc func() http.Handler

func (m mountFunc) Handle() http.Handler { return m() }
