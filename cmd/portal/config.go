package main

import (
	"time"

	"github.com/dmitrymomot/gpportal/pkg/cookie"
	"github.com/dmitrymomot/gpportal/pkg/email"
	"github.com/dmitrymomot/gpportal/pkg/httpserver"
	"github.com/dmitrymomot/gpportal/pkg/pg"
	"github.com/dmitrymomot/gpportal/pkg/ratelimiter"
	"github.com/dmitrymomot/gpportal/pkg/redis"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/svc/billing"
)

type appConfig struct {
	Name     string `env:"APP_NAME" envDefault:"gpportal"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`
	LoginURL string `env:"APP_LOGIN_URL" envDefault:"/login"`
	// BillingURL is where browsers without a subscription are sent.
	BillingURL string `env:"APP_BILLING_URL" envDefault:"/billing"`

	FeatureCacheSize int           `env:"FEATURE_CACHE_SIZE" envDefault:"1000"`
	FeatureCacheTTL  time.Duration `env:"FEATURE_CACHE_TTL" envDefault:"1m"`
	TenantCacheSize  int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`
	TenantCacheTTL   time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"3s"`
}

// bootstrapConfig creates the first SUPER_ADMIN on an empty database.
type bootstrapConfig struct {
	AdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	AdminName     string `env:"BOOTSTRAP_ADMIN_NAME" envDefault:"Portal operator"`
}

type Config struct {
	App       appConfig
	Bootstrap bootstrapConfig
	HTTP      httpserver.Config
	PG        pg.Config
	Redis     redis.Config
	Session   session.Config
	Cookie    cookie.Config
	Email     email.Config
	Billing   billing.Config
	Login     ratelimiter.Config
}
