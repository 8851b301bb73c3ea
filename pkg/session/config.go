package session

import "time"

// Config holds session configuration.
type Config struct {
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"gp_sid"`

	// IdleTimeout is how long a session survives without use.
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	// MaxLifetime bounds a session from creation regardless of use.
	MaxLifetime time.Duration `env:"SESSION_MAX_LIFETIME" envDefault:"168h"`

	// ActivityUpdateThreshold is the minimum time between activity writes.
	ActivityUpdateThreshold time.Duration `env:"SESSION_ACTIVITY_UPDATE_THRESHOLD" envDefault:"5m"`

	// CleanupInterval for the in-memory store (0 disables).
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	SecureCookies bool `env:"SESSION_SECURE_COOKIES" envDefault:"false"`

	// Store selects the backend: "memory" or "redis".
	Store string `env:"SESSION_STORE" envDefault:"redis"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		CookieName:              "gp_sid",
		IdleTimeout:             2 * time.Hour,
		MaxLifetime:             7 * 24 * time.Hour,
		ActivityUpdateThreshold: 5 * time.Minute,
		CleanupInterval:         5 * time.Minute,
		Store:                   "redis",
	}
}

// expiry returns the next expiry: now plus the idle timeout, capped by the
// maximum lifetime.
func (c Config) expiry(createdAt, now time.Time) time.Time {
	idle := now.Add(c.IdleTimeout)
	hardLimit := createdAt.Add(c.MaxLifetime)
	if hardLimit.Before(idle) {
		return hardLimit
	}
	return idle
}

// NewFromConfig creates a Manager from cfg.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	return New(append([]Option{WithConfig(cfg)}, opts...)...)
}
