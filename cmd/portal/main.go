package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/migrations"
	"github.com/dmitrymomot/gpportal/modules/portal"
	"github.com/dmitrymomot/gpportal/pkg/audit"
	"github.com/dmitrymomot/gpportal/pkg/config"
	"github.com/dmitrymomot/gpportal/pkg/cookie"
	"github.com/dmitrymomot/gpportal/pkg/email"
	"github.com/dmitrymomot/gpportal/pkg/httpserver"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/metrics"
	"github.com/dmitrymomot/gpportal/pkg/pg"
	"github.com/dmitrymomot/gpportal/pkg/ratelimiter"
	"github.com/dmitrymomot/gpportal/pkg/rbac"
	"github.com/dmitrymomot/gpportal/pkg/redis"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
	"github.com/dmitrymomot/gpportal/svc/access"
	"github.com/dmitrymomot/gpportal/svc/auth"
	"github.com/dmitrymomot/gpportal/svc/billing"
	"github.com/dmitrymomot/gpportal/svc/pgstore"
)

func main() {
	var cfg Config
	config.MustLoad(&cfg)

	opts := []logger.Option{
		logger.WithEnvironment(cfg.App.Env, cfg.App.Name),
		logger.WithContextExtractors(
			requestIDExtractor,
			session.LoggerExtractor(),
			tenant.LoggerExtractor(),
			rbac.LoggerExtractor(),
		),
	}
	if cfg.App.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.App.LogLevel))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("portal stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	id := middleware.GetReqID(ctx)
	if id == "" {
		return slog.Attr{}, false
	}
	return logger.RequestID(id), true
}

func sessionActor(ctx context.Context) (uuid.UUID, bool) {
	s, ok := session.FromContext(ctx)
	if !ok || s.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return s.UserID, true
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if cfg.PG.AutoMigrate {
		if err := pg.Migrate(ctx, pool, cfg.PG, migrations.FS, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	store := pgstore.New(pool)

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	var (
		sessionStore session.Store
		loginStore   ratelimiter.Store
	)
	switch cfg.Session.Store {
	case "memory":
		mem := session.NewMemoryStore(cfg.Session.CleanupInterval)
		defer mem.Close()
		sessionStore = mem
		loginStore = ratelimiter.NewMemoryStore()
	default:
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		sessionStore = session.NewRedisStore(rdb)
		loginStore = ratelimiter.NewRedisStore(rdb, ratelimiter.WithKeyPrefix(cfg.App.Name+":login:"))
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)})
	}

	m := metrics.New()
	tenants := tenant.NewDirectory(store, tenant.WithCacheSize(cfg.App.TenantCacheSize, cfg.App.TenantCacheTTL))

	gateway, err := billing.NewGateway(cfg.Billing)
	if err != nil {
		return err
	}

	auditWriter := audit.NewAsyncWriter(store, audit.AsyncOptions{}, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := auditWriter.Close(closeCtx); err != nil {
			log.Error("audit writer close", logger.Error(err))
		}
	}()
	trail := audit.NewLogger(auditWriter,
		audit.WithActorExtractor(sessionActor),
		audit.WithRequestIDExtractor(func(ctx context.Context) (string, bool) {
			id := middleware.GetReqID(ctx)
			return id, id != ""
		}),
	)

	svcOpts := []subscription.ServiceOption{
		subscription.WithLogger(log.With(logger.Component("subscription"))),
		subscription.WithFeatureCache(cfg.App.FeatureCacheSize, cfg.App.FeatureCacheTTL),
		subscription.WithChangeHook(func(_ context.Context, kind subscription.ChangeKind, _ *subscription.Subscription) {
			m.SubscriptionChanged(string(kind))
		}),
		subscription.WithChangeHook(audit.SubscriptionHook(trail, log)),
	}
	if gateway != nil {
		svcOpts = append(svcOpts, subscription.WithGateway(gateway))
	}
	subs := subscription.NewService(store, store, tenants, svcOpts...)

	if cfg.Billing.CatalogPath != "" {
		catalog, err := subscription.LoadCatalog(cfg.Billing.CatalogPath)
		if err != nil {
			return err
		}
		report, err := subs.SyncCatalog(ctx, catalog.Plans)
		if err != nil {
			return fmt.Errorf("sync plan catalog: %w", err)
		}
		log.InfoContext(ctx, "plan catalog synced",
			slog.Any("created", report.Created),
			slog.Any("updated", report.Updated),
			slog.Any("frozen", report.Frozen),
		)
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return fmt.Errorf("cookie manager: %w", err)
	}
	sessions := session.NewFromConfig(cfg.Session,
		session.WithStore(sessionStore),
		session.WithCookieManager(cookies),
		session.WithLogger(log.With(logger.Component("session"))),
		session.WithRefreshHook(func(_ context.Context, s *session.Session) {
			if s.TenantID != nil {
				subs.Invalidate(*s.TenantID)
			}
		}),
	)
	defer sessions.Close()

	sender, err := email.New(cfg.Email)
	if err != nil {
		return fmt.Errorf("email sender: %w", err)
	}

	authn := auth.NewAuthenticator(store, auth.WithPasswordLogger(log.With(logger.Component("auth"))))
	if err := bootstrapAdmin(ctx, authn, cfg.Bootstrap, log); err != nil {
		return err
	}

	guard := access.New(subs,
		access.WithLoginURL(cfg.App.LoginURL),
		access.WithBillingURL(cfg.App.BillingURL),
		access.WithLogger(log.With(logger.Component("access"))),
		access.WithMetrics(m),
	)

	billingOpts := []billing.Option{
		billing.WithPayments(store),
		billing.WithTenants(tenants),
		billing.WithMetrics(m),
		billing.WithAudit(trail, store),
		billing.WithLogger(log.With(logger.Component("billing"))),
	}
	if gateway != nil {
		notifier := billing.WithPaymentMetrics(billing.NewEmailNotifier(sender, tenants, cfg.Email, log), m)
		reconciler := subscription.NewReconciler(gateway, subs, store,
			subscription.WithEventStore(store),
			subscription.WithNotifier(notifier),
			subscription.WithReconcilerLogger(log.With(logger.Component("reconciler"))),
		)
		billingOpts = append(billingOpts, billing.WithReconciler(reconciler))
	} else {
		log.WarnContext(ctx, "billing provider disabled: checkout, portal and webhooks are unavailable")
	}
	billingSvc := billing.NewService(subs, guard, cfg.Billing, billingOpts...)
	loginLimiter, err := ratelimiter.New(loginStore, cfg.Login)
	if err != nil {
		return fmt.Errorf("login rate limiter: %w", err)
	}
	authLog := log.With(logger.Component("auth"))
	authSvc := auth.NewService(authn, sessions, tenants,
		auth.WithLogger(authLog),
		auth.WithLoginMiddleware(ratelimiter.Middleware(loginLimiter, ratelimiter.ByIP, authLog)),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, m.Middleware)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, cfg.App.ReadinessTimeout, checks...))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		r.Use(tenant.Middleware(tenants, tenant.FromSession(), tenant.WithLogger(log)))

		r.Mount("/auth", authSvc.Handle())
		r.Mount("/billing", billingSvc.Handle())
		r.Mount("/admin", billingSvc.Admin())
		r.Mount("/", portal.Router(portal.RouterOptions{
			Guard:         guard,
			Subscriptions: subs,
			Tenants:       tenants,
			Logger:        log.With(logger.Component("portal")),
		}))
	})

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	if err := server.Run(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func bootstrapAdmin(ctx context.Context, authn *auth.Authenticator, cfg bootstrapConfig, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	created, err := authn.EnsureUser(ctx, auth.NewUser{
		Email:    cfg.AdminEmail,
		Name:     cfg.AdminName,
		Password: cfg.AdminPassword,
		Role:     rbac.SuperAdmin,
	})
	if err != nil {
		return fmt.Errorf("bootstrap super admin: %w", err)
	}
	if created {
		log.InfoContext(ctx, "super admin created", slog.String("email", auth.NormalizeEmail(cfg.AdminEmail)))
	}
	return nil
}
