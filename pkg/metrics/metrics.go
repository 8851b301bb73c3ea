package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gpportal"

// Webhook outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Gate decisions.
const (
	DecisionAllowed        = "allowed"
	DecisionNotInPlan      = "not_in_plan"
	DecisionNoSubscription = "no_subscription"
	DecisionBypass         = "bypass"
)

// Metrics holds the portal's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	webhookEvents       *prometheus.CounterVec
	gateDecisions       *prometheus.CounterVec
	subscriptionChanges *prometheus.CounterVec
	payments            *prometheus.CounterVec
	paymentAmount       *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment provider webhook deliveries by provider, event type and outcome.",
		}, []string{"provider", "type", "outcome"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Feature gate decisions by feature and decision.",
		}, []string{"feature", "decision"}),
		subscriptionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_changes_total",
			Help:      "Subscription mutations by kind (assigned, cancelled, expired, reconciled).",
		}, []string{"kind"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Recorded payments by provider.",
		}, []string{"provider"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_amount_minor_total",
			Help:      "Sum of recorded payments in minor currency units.",
		}, []string{"provider", "currency"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.webhookEvents,
		m.gateDecisions,
		m.subscriptionChanges,
		m.payments,
		m.paymentAmount,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) WebhookEvent(provider, eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(norm(provider), eventType, outcome).Inc()
}

func (m *Metrics) GateDecision(feature, decision string) {
	m.gateDecisions.WithLabelValues(feature, decision).Inc()
}

func (m *Metrics) SubscriptionChanged(kind string) {
	m.subscriptionChanges.WithLabelValues(norm(kind)).Inc()
}

// PaymentRecorded counts a newly recorded payment of amount minor units.
func (m *Metrics) PaymentRecorded(provider, currency string, amount int64) {
	m.payments.WithLabelValues(norm(provider)).Inc()
	if amount > 0 {
		m.paymentAmount.WithLabelValues(norm(provider), strings.ToUpper(currency)).Add(float64(amount))
	}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
