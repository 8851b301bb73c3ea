package logger

import (
	"fmt"
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TenantID records the tenant (Gram Panchayat) identifier under the key "tenant_id".
func TenantID(id fmt.Stringer) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.String("tenant_id", id.String())
}

// UserID records the user identifier under the key "user_id".
func UserID(id fmt.Stringer) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.String("user_id", id.String())
}

// SubscriptionID records the local subscription identifier.
func SubscriptionID(id fmt.Stringer) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.String("subscription_id", id.String())
}

func PlanID(id string) slog.Attr {
	return slog.String("plan_id", id)
}

func Role(role string) slog.Attr {
	return slog.String("role", role)
}

func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Provider records the payment provider name.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// EventID records a provider event identifier.
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// ExternalID records a provider-issued object reference.
func ExternalID(id string) slog.Attr {
	return slog.String("external_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
