package subscription

import (
	"fmt"
	"slices"
)

// Feature is a plan-gated capability of the portal.
type Feature string

const (
	FeatureCertificates Feature = "CERTIFICATE_MGMT"
	FeatureSchemes      Feature = "SCHEME_MGMT"
	FeatureWaterQuality Feature = "WATER_QUALITY"
	FeatureAssets       Feature = "ASSET_MGMT"
	FeatureWarish       Feature = "WARISH_MGMT"
	FeatureStaff        Feature = "STAFF_MGMT"
	FeatureReports      Feature = "REPORTS"
)

var knownFeatures = []Feature{
	FeatureCertificates,
	FeatureSchemes,
	FeatureWaterQuality,
	FeatureAssets,
	FeatureWarish,
	FeatureStaff,
	FeatureReports,
}

// KnownFeatures returns every feature flag in declaration order.
func KnownFeatures() []Feature {
	return slices.Clone(knownFeatures)
}

// Valid reports whether f is a declared feature flag.
func (f Feature) Valid() bool {
	return slices.Contains(knownFeatures, f)
}

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusTrialing   Status = "TRIALING"
	StatusPastDue    Status = "PAST_DUE"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
	StatusIncomplete Status = "INCOMPLETE"
)

// Live reports whether the status grants access (ACTIVE or TRIALING).
func (s Status) Live() bool {
	return s == StatusActive || s == StatusTrialing
}

// Valid reports whether s is a declared status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCancelled, StatusExpired, StatusIncomplete:
		return true
	default:
		return false
	}
}

// Money is an amount in the smallest currency unit (paise for INR).
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}

// EventType is the normalized type of a payment provider event.
type EventType string

const (
	EventCheckoutCompleted       EventType = "checkout_completed"
	EventInvoicePaymentSucceeded EventType = "invoice_payment_succeeded"
	EventSubscriptionUpdated     EventType = "subscription_updated"
)

// Provider names.
const (
	ProviderManual = "manual"
	ProviderStripe = "stripe"
	ProviderPaddle = "paddle"
)
