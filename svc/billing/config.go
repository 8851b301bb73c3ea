package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/gpportal/pkg/subscription"
)

// Config holds billing settings.
type Config struct {
	// Provider selects the payment gateway: stripe, paddle or none.
	Provider    string `env:"BILLING_PROVIDER" envDefault:"stripe"`
	CatalogPath string `env:"BILLING_CATALOG_PATH"`

	SuccessURL      string `env:"BILLING_SUCCESS_URL" envDefault:"http://localhost:8080/?checkout=success"`
	CancelURL       string `env:"BILLING_CANCEL_URL" envDefault:"http://localhost:8080/billing?checkout=cancelled"`
	PortalReturnURL string `env:"BILLING_PORTAL_RETURN_URL" envDefault:"http://localhost:8080/billing"`

	MaxWebhookBytes int64 `env:"BILLING_WEBHOOK_MAX_BYTES" envDefault:"65536"`

	Stripe subscription.StripeConfig
	Paddle subscription.PaddleConfig
}

// NewGateway builds the configured gateway. It returns nil for provider
// "none", which disables checkout, portal and webhooks.
func NewGateway(cfg Config) (subscription.Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case subscription.ProviderStripe:
		gw, err := subscription.NewStripeGateway(cfg.Stripe)
		if err != nil {
			return nil, fmt.Errorf("stripe gateway: %w", err)
		}
		return gw, nil
	case subscription.ProviderPaddle:
		gw, err := subscription.NewPaddleGateway(cfg.Paddle)
		if err != nil {
			return nil, fmt.Errorf("paddle gateway: %w", err)
		}
		return gw, nil
	case "none", "":
		return nil, nil
	default:
		return nil, errors.Join(subscription.ErrUnsupportedProvider, fmt.Errorf("billing provider %q", cfg.Provider))
	}
}
