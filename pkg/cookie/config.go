package cookie

import (
	"fmt"
	"net/http"
	"strings"
)

// Config holds cookie manager configuration.
type Config struct {
	// Secrets is a comma-separated list; the first one signs.
	Secrets  string `env:"COOKIE_SECRETS,required"`
	Path     string `env:"COOKIE_PATH" envDefault:"/"`
	Domain   string `env:"COOKIE_DOMAIN"`
	Secure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	SameSite string `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

func (c Config) secrets() []string {
	var out []string
	for s := range strings.SplitSeq(c.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseSameSite maps lax, strict and none to their http.SameSite values.
func ParseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSameSite, v)
	}
}

// NewFromConfig creates a Manager from cfg. Extra options override the
// config values.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	sameSite, err := ParseSameSite(cfg.SameSite)
	if err != nil {
		return nil, err
	}

	configOpts := []Option{
		WithSecure(cfg.Secure),
		WithSameSite(sameSite),
	}
	if cfg.Path != "" {
		configOpts = append(configOpts, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		configOpts = append(configOpts, WithDomain(cfg.Domain))
	}

	return New(cfg.secrets(), append(configOpts, opts...)...)
}
