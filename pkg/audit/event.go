package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is a single audit entry. TenantID is nil for platform-level
// actions such as plan catalog edits.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	TenantID   *uuid.UUID     `json:"tenant_id,omitempty"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Result     Result         `json:"result"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (e *Event) validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidEvent)
	}
	return nil
}

// EventOption fills in an Event at the call site.
type EventOption func(*Event)

func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

// WithTenant overrides the tenant taken from the context.
func WithTenant(id uuid.UUID) EventOption {
	return func(e *Event) {
		e.TenantID = &id
	}
}

func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}
