package access

import (
	"log/slog"
	"time"
)

// Recorder observes gate decisions. *metrics.Metrics implements it.
type Recorder interface {
	GateDecision(feature, decision string)
}

type noopRecorder struct{}

func (noopRecorder) GateDecision(string, string) {}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginURL sets where unauthenticated browsers are redirected.
func WithLoginURL(url string) Option {
	return func(g *Guard) {
		if url != "" {
			g.loginURL = url
		}
	}
}

// WithBillingURL sets where browsers of unsubscribed tenants are redirected.
func WithBillingURL(url string) Option {
	return func(g *Guard) {
		if url != "" {
			g.billingURL = url
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithMetrics(r Recorder) Option {
	return func(g *Guard) {
		if r != nil {
			g.metrics = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}
