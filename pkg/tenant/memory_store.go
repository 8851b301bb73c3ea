package tenant

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]Tenant
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(tenants ...Tenant) *MemoryStore {
	s := &MemoryStore{tenants: make(map[uuid.UUID]Tenant, len(tenants))}
	for _, t := range tenants {
		s.Put(t)
	}
	return s
}

// Put adds or replaces a tenant.
func (s *MemoryStore) Put(t Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *MemoryStore) GetTenant(_ context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &t, nil
}
