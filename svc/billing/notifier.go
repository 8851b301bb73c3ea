package billing

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/email"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/subscription"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Email tags.
const (
	TagPaymentReceipt = "payment-receipt"
	TagCatalogDrift   = "catalog-drift"
)

// TenantLookup loads a tenant by id. *tenant.Directory implements it.
type TenantLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// EmailNotifier implements subscription.Notifier with transactional email.
type EmailNotifier struct {
	sender   email.Sender
	tenants  TenantLookup
	operator string
	support  string
	logger   *slog.Logger
}

var _ subscription.Notifier = (*EmailNotifier)(nil)

// NewEmailNotifier panics if sender or tenants is nil.
func NewEmailNotifier(sender email.Sender, tenants TenantLookup, cfg email.Config, log *slog.Logger) *EmailNotifier {
	if sender == nil || tenants == nil {
		panic("billing: email sender and tenant lookup are required")
	}
	if log == nil {
		log = logger.Noop()
	}
	return &EmailNotifier{
		sender:   sender,
		tenants:  tenants,
		operator: cfg.OperatorEmail,
		support:  cfg.SupportEmail,
		logger:   log,
	}
}

type receiptData struct {
	TenantName string
	LGDCode    string
	Amount     string
	Reference  string
	PaidAt     time.Time
	Support    string
}

// PaymentReceived emails a receipt to the tenant's contact address.
// Tenants without one are skipped.
func (n *EmailNotifier) PaymentReceived(ctx context.Context, p *subscription.Payment) error {
	t, err := n.tenants.Get(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	if t.ContactEmail == "" {
		n.logger.InfoContext(ctx, "no contact email for payment receipt", logger.TenantID(t.ID))
		return nil
	}

	body, err := render("payment_receipt.html", receiptData{
		TenantName: t.Name,
		LGDCode:    t.Code,
		Amount:     p.Amount.String(),
		Reference:  p.ExternalRef,
		PaidAt:     p.PaidAt,
		Support:    n.support,
	})
	if err != nil {
		return err
	}

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   t.ContactEmail,
		Subject:  "Payment received: " + p.Amount.String(),
		BodyHTML: body,
		Tag:      TagPaymentReceipt,
	})
}

type driftData struct {
	Provider       string
	EventID        string
	PriceID        string
	TenantID       string
	SubscriptionID string
}

// CatalogDrift alerts the operator about a checkout for an unknown price.
func (n *EmailNotifier) CatalogDrift(ctx context.Context, ev *subscription.Event) error {
	if n.operator == "" {
		n.logger.WarnContext(ctx, "catalog drift alert skipped: no operator email configured",
			logger.EventID(ev.ID),
		)
		return nil
	}

	body, err := render("catalog_drift.html", driftData{
		Provider:       ev.Provider,
		EventID:        ev.ID,
		PriceID:        ev.ExternalPriceID,
		TenantID:       ev.TenantID,
		SubscriptionID: ev.ExternalSubscriptionID,
	})
	if err != nil {
		return err
	}

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   n.operator,
		Subject:  "Plan catalog drift: unknown price " + ev.ExternalPriceID,
		BodyHTML: body,
		Tag:      TagCatalogDrift,
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// PaymentRecorder counts confirmed payments. *metrics.Metrics implements it.
type PaymentRecorder interface {
	PaymentRecorded(provider, currency string, amount int64)
}

// WithPaymentMetrics wraps next so every newly recorded payment is counted
// before next is notified. next may be nil.
func WithPaymentMetrics(next subscription.Notifier, m PaymentRecorder) subscription.Notifier {
	return &meteredNotifier{next: next, metrics: m}
}

type meteredNotifier struct {
	next    subscription.Notifier
	metrics PaymentRecorder
}

func (n *meteredNotifier) PaymentReceived(ctx context.Context, p *subscription.Payment) error {
	if n.metrics != nil {
		n.metrics.PaymentRecorded(p.Provider, p.Amount.Currency, p.Amount.Amount)
	}
	if n.next == nil {
		return nil
	}
	return n.next.PaymentReceived(ctx, p)
}

func (n *meteredNotifier) CatalogDrift(ctx context.Context, ev *subscription.Event) error {
	if n.next == nil {
		return nil
	}
	return n.next.CatalogDrift(ctx, ev)
}
