//go:build integration

package pgstore_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/migrations"
	"github.com/dmitrymomot/gpportal/pkg/audit"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/pg"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
	"github.com/dmitrymomot/gpportal/svc/auth"
	"github.com/dmitrymomot/gpportal/svc/pgstore"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

func newTestStore(t *testing.T) (*pgstore.Store, *pgxpool.Pool) {
	t.Helper()

	connURL := os.Getenv("PG_CONN_URL")
	if connURL == "" {
		t.Skip("PG_CONN_URL not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: connURL,
		MaxConns:         4,
		MinConns:         1,
		RetryAttempts:    1,
		RetryInterval:    time.Second,
		MigrationsTable:  "schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrateOnce.Do(func() {
		migrateErr = pg.Migrate(ctx, pool, cfg, migrations.FS, logger.Noop())
	})
	require.NoError(t, migrateErr)

	return pgstore.New(pool), pool
}

func seedTenant(t *testing.T, s *pgstore.Store) *tenant.Tenant {
	t.Helper()
	tn := &tenant.Tenant{
		Code:         uuid.NewString()[:8],
		Name:         "Rampur",
		District:     "Barabanki",
		State:        "Uttar Pradesh",
		ContactEmail: "sarpanch@rampur.in",
		Active:       true,
	}
	require.NoError(t, s.CreateTenant(context.Background(), tn))
	return tn
}

func seedPlan(t *testing.T, s *pgstore.Store) *subscription.Plan {
	t.Helper()
	suffix := uuid.NewString()[:8]
	p := &subscription.Plan{
		ID:              "pro-" + suffix,
		Name:            "Pro " + suffix,
		Price:           subscription.Money{Amount: 99900, Currency: "INR"},
		Duration:        12,
		Features:        []subscription.Feature{subscription.FeatureCertificates, subscription.FeatureSchemes},
		ExternalPriceID: "price_" + suffix,
		Active:          true,
	}
	require.NoError(t, s.CreatePlan(context.Background(), p))
	return p
}

func TestStore_Tenants(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	tn := seedTenant(t, s)

	got, err := s.GetTenant(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tn.Code, got.Code)
	assert.Equal(t, "Barabanki", got.District)

	exists, err := s.TenantExists(ctx, tn.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.GetTenant(ctx, uuid.New())
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	dup := &tenant.Tenant{Code: tn.Code, Name: "Other", Active: true}
	assert.ErrorIs(t, s.CreateTenant(ctx, dup), pgstore.ErrDuplicateTenantCode)
}

func TestStore_Plans(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := seedPlan(t, s)

	got, err := s.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Features, got.Features)
	assert.Equal(t, p.Price, got.Price)

	byPrice, err := s.GetPlanByExternalPriceID(ctx, p.ExternalPriceID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byPrice.ID)

	_, err = s.GetPlan(ctx, "missing-plan")
	assert.ErrorIs(t, err, subscription.ErrNotFound)

	dup := *p
	dup.ID = p.ID + "-copy"
	dup.ExternalPriceID = ""
	err = s.CreatePlan(ctx, &dup)
	assert.ErrorIs(t, err, subscription.ErrConflict)
	assert.ErrorIs(t, err, subscription.ErrDuplicatePlan)

	require.NoError(t, s.SetPlanActive(ctx, p.ID, false))
	got, err = s.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got.Description = "annual"
	require.NoError(t, s.UpdatePlan(ctx, got))
	got, err = s.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "annual", got.Description)
}

func TestStore_OneLiveSubscriptionPerTenant(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	tn := seedTenant(t, s)
	p := seedPlan(t, s)

	first := &subscription.Subscription{
		TenantID:         tn.ID,
		PlanID:           p.ID,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: time.Now().AddDate(1, 0, 0),
		Provider:         subscription.ProviderManual,
	}
	require.NoError(t, s.CreateSubscription(ctx, first))

	second := *first
	second.ID = uuid.Nil
	err := s.CreateSubscription(ctx, &second)
	assert.ErrorIs(t, err, subscription.ErrConflict)
	assert.ErrorIs(t, err, subscription.ErrActiveSubscriptionExists)

	inUse, err := s.PlanInUse(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, inUse)

	cancelledAt := time.Now()
	cancelled, err := s.UpdateStatus(ctx, first.ID, subscription.StatusCancelled, cancelledAt)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = s.GetActiveByTenant(ctx, tn.ID)
	assert.ErrorIs(t, err, subscription.ErrNotFound)

	second.ID = uuid.Nil
	require.NoError(t, s.CreateSubscription(ctx, &second))

	list, err := s.ListSubscriptions(ctx, tn.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStore_CreateSubscriptionForeignKeys(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := seedPlan(t, s)
	err := s.CreateSubscription(ctx, &subscription.Subscription{
		TenantID:         uuid.New(),
		PlanID:           p.ID,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: time.Now().AddDate(0, 1, 0),
		Provider:         subscription.ProviderManual,
	})
	assert.ErrorIs(t, err, subscription.ErrNotFound)
	assert.ErrorIs(t, err, subscription.ErrTenantNotFound)
}

func TestStore_UpsertFromPayment(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	tn := seedTenant(t, s)
	p := seedPlan(t, s)

	manual := &subscription.Subscription{
		TenantID:         tn.ID,
		PlanID:           p.ID,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: time.Now().AddDate(0, 1, 0),
		Provider:         subscription.ProviderManual,
	}
	require.NoError(t, s.CreateSubscription(ctx, manual))

	externalID := "sub_" + uuid.NewString()[:8]
	periodEnd := time.Now().AddDate(1, 0, 0).UTC().Truncate(time.Second)
	eventAt := time.Now().UTC().Truncate(time.Second)

	created, err := s.UpsertFromPayment(ctx, subscription.UpsertParams{
		TenantID:         tn.ID,
		PlanID:           p.ID,
		Provider:         subscription.ProviderStripe,
		ExternalID:       externalID,
		CustomerID:       "cus_1",
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: periodEnd,
		EventAt:          eventAt,
	})
	require.NoError(t, err)
	assert.Equal(t, externalID, created.ExternalID)
	assert.Equal(t, "cus_1", created.ExternalCustomerID)
	assert.True(t, created.CurrentPeriodEnd.Equal(periodEnd))

	old, err := s.GetSubscription(ctx, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, old.Status, "paid checkout supersedes the manual subscription")

	t.Run("stale events leave the row unchanged", func(t *testing.T) {
		got, err := s.UpsertFromPayment(ctx, subscription.UpsertParams{
			TenantID:         tn.ID,
			PlanID:           p.ID,
			Provider:         subscription.ProviderStripe,
			ExternalID:       externalID,
			Status:           subscription.StatusPastDue,
			CurrentPeriodEnd: periodEnd,
			EventAt:          eventAt.Add(-time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, got.Status)
	})

	t.Run("newer events update by external id", func(t *testing.T) {
		got, err := s.UpsertFromPayment(ctx, subscription.UpsertParams{
			TenantID:         tn.ID,
			PlanID:           p.ID,
			Provider:         subscription.ProviderStripe,
			ExternalID:       externalID,
			Status:           subscription.StatusPastDue,
			CurrentPeriodEnd: periodEnd,
			EventAt:          eventAt.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, subscription.StatusPastDue, got.Status)
		assert.Equal(t, "cus_1", got.ExternalCustomerID)

		byExt, err := s.GetByExternalID(ctx, subscription.ProviderStripe, externalID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, byExt.ID)
	})

	t.Run("cancelled rows are not revived", func(t *testing.T) {
		_, err := s.UpdateStatus(ctx, created.ID, subscription.StatusCancelled, time.Now())
		require.NoError(t, err)

		_, err = s.UpsertFromPayment(ctx, subscription.UpsertParams{
			TenantID:         tn.ID,
			PlanID:           p.ID,
			Provider:         subscription.ProviderStripe,
			ExternalID:       externalID,
			Status:           subscription.StatusActive,
			CurrentPeriodEnd: periodEnd,
			EventAt:          eventAt.Add(2 * time.Hour),
		})
		require.ErrorIs(t, err, subscription.ErrInvalidTransition)

		got, err := s.GetSubscription(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, got.Status)
	})
}

func TestStore_PaymentsAndEvents(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	tn := seedTenant(t, s)
	ref := "in_" + uuid.NewString()[:8]
	payment := &subscription.Payment{
		TenantID:    tn.ID,
		Amount:      subscription.Money{Amount: 99900, Currency: "INR"},
		Provider:    subscription.ProviderStripe,
		ExternalRef: ref,
		PaidAt:      time.Now(),
	}

	inserted, err := s.RecordPayment(ctx, payment)
	require.NoError(t, err)
	assert.True(t, inserted)

	again := *payment
	again.ID = uuid.Nil
	inserted, err = s.RecordPayment(ctx, &again)
	require.NoError(t, err)
	assert.False(t, inserted)

	payments, err := s.ListPayments(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(99900), payments[0].Amount.Amount)

	eventID := "evt_" + uuid.NewString()[:8]
	processed, err := s.IsProcessed(ctx, subscription.ProviderStripe, eventID)
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, s.MarkProcessed(ctx, subscription.ProviderStripe, eventID, subscription.EventCheckoutCompleted, time.Now()))
	require.NoError(t, s.MarkProcessed(ctx, subscription.ProviderStripe, eventID, subscription.EventCheckoutCompleted, time.Now()))

	processed, err = s.IsProcessed(ctx, subscription.ProviderStripe, eventID)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestStore_AuditEvents(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	tn := seedTenant(t, s)
	trail := audit.NewLogger(s)
	require.NoError(t, trail.Log(ctx, "subscription.assigned",
		audit.WithTenant(tn.ID),
		audit.WithResource(audit.ResourceSubscription, uuid.NewString()),
		audit.WithMetadata("plan_id", "basic"),
	))
	require.NoError(t, trail.Log(ctx, "subscription.cancelled", audit.WithTenant(tn.ID)))
	require.NoError(t, trail.Log(ctx, "plan.created"))

	events, err := s.ListEvents(ctx, audit.Criteria{TenantID: tn.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "subscription.cancelled", events[0].Action)
	assert.Nil(t, events[0].Metadata)
	assert.Equal(t, "basic", events[1].Metadata["plan_id"])
	assert.Equal(t, audit.ResultSuccess, events[1].Result)

	limited, err := s.ListEvents(ctx, audit.Criteria{TenantID: tn.ID, Action: "subscription.assigned", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Users(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	tn := seedTenant(t, s)
	email := uuid.NewString()[:8] + "@rampur.in"
	u := &auth.User{
		Email:        email,
		Name:         "Sarpanch",
		PasswordHash: []byte("$2a$04$hash"),
		Role:         rbac.GPAdmin,
		TenantID:     &tn.ID,
		Active:       true,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, rbac.GPAdmin, got.Role)
	require.NotNil(t, got.TenantID)
	assert.Equal(t, tn.ID, *got.TenantID)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)

	dup := *u
	dup.ID = uuid.Nil
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), auth.ErrEmailAlreadyExists)

	_, err = s.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
