package audit

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Criteria filters ListEvents. Zero fields match everything.
type Criteria struct {
	TenantID uuid.UUID
	Action   string
	Limit    int
}

// MemoryStorage keeps events in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) StoreEvents(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// ListEvents returns matching events newest first.
func (s *MemoryStorage) ListEvents(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, ev := range slices.Backward(s.events) {
		if c.TenantID != uuid.Nil && (ev.TenantID == nil || *ev.TenantID != c.TenantID) {
			continue
		}
		if c.Action != "" && ev.Action != c.Action {
			continue
		}
		out = append(out, ev)
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	return out, nil
}
