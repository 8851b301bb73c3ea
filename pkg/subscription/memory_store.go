package subscription

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process implementation of every store contract in
// this package. It is safe for concurrent use and hands out copies.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	plans    map[string]*Plan
	subs     map[uuid.UUID]*Subscription
	payments map[string]*Payment
	events   map[string]time.Time
	tenants  map[uuid.UUID]struct{}
}

var (
	_ PlanStore         = (*MemoryStore)(nil)
	_ SubscriptionStore = (*MemoryStore)(nil)
	_ PaymentStore      = (*MemoryStore)(nil)
	_ EventStore        = (*MemoryStore)(nil)
	_ TenantDirectory   = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		plans:    make(map[string]*Plan),
		subs:     make(map[uuid.UUID]*Subscription),
		payments: make(map[string]*Payment),
		events:   make(map[string]time.Time),
		tenants:  make(map[uuid.UUID]struct{}),
	}
}

// AddTenant registers a tenant id so that TenantExists reports it.
func (m *MemoryStore) AddTenant(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[id] = struct{}{}
}

func (m *MemoryStore) TenantExists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tenants[id]
	return ok, nil
}

func (m *MemoryStore) GetPlan(_ context.Context, id string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, errors.Join(ErrNotFound, ErrUnknownPlan)
	}
	return p.clone(), nil
}

func (m *MemoryStore) GetPlanByExternalPriceID(_ context.Context, priceID string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if priceID != "" {
		for _, p := range m.plans {
			if p.ExternalPriceID == priceID {
				return p.clone(), nil
			}
		}
	}
	return nil, errors.Join(ErrNotFound, ErrUnknownPlan)
}

func (m *MemoryStore) ListPlans(_ context.Context) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, *p.clone())
	}
	slices.SortFunc(out, func(a, b Plan) int {
		return cmp.Or(cmp.Compare(a.Price.Amount, b.Price.Amount), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *MemoryStore) CreatePlan(_ context.Context, plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkPlanUniqueLocked(plan, ""); err != nil {
		return err
	}
	if _, ok := m.plans[plan.ID]; ok {
		return errors.Join(ErrConflict, ErrDuplicatePlan)
	}
	now := m.now()
	plan.CreatedAt, plan.UpdatedAt = now, now
	m.plans[plan.ID] = plan.clone()
	return nil
}

func (m *MemoryStore) UpdatePlan(_ context.Context, plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.plans[plan.ID]
	if !ok {
		return errors.Join(ErrNotFound, ErrUnknownPlan)
	}
	if err := m.checkPlanUniqueLocked(plan, plan.ID); err != nil {
		return err
	}
	plan.CreatedAt = cur.CreatedAt
	plan.UpdatedAt = m.now()
	m.plans[plan.ID] = plan.clone()
	return nil
}

func (m *MemoryStore) checkPlanUniqueLocked(plan *Plan, self string) error {
	for id, p := range m.plans {
		if id == self {
			continue
		}
		if p.Name == plan.Name || (plan.ExternalPriceID != "" && p.ExternalPriceID == plan.ExternalPriceID) {
			return errors.Join(ErrConflict, ErrDuplicatePlan)
		}
	}
	return nil
}

func (m *MemoryStore) SetPlanActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return errors.Join(ErrNotFound, ErrUnknownPlan)
	}
	p.Active = active
	p.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) PlanInUse(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subs {
		if s.PlanID == id && s.Status.Live() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) GetSubscription(_ context.Context, id uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, errors.Join(ErrNotFound, ErrSubscriptionNotFound)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) GetActiveByTenant(_ context.Context, tenantID uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s := m.liveLocked(tenantID); s != nil {
		return s.Clone(), nil
	}
	return nil, errors.Join(ErrNotFound, ErrSubscriptionNotFound)
}

func (m *MemoryStore) GetByExternalID(_ context.Context, provider, externalID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s := m.byExternalLocked(provider, externalID); s != nil {
		return s.Clone(), nil
	}
	return nil, errors.Join(ErrNotFound, ErrSubscriptionNotFound)
}

func (m *MemoryStore) ListSubscriptions(_ context.Context, tenantID uuid.UUID) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Subscription
	for _, s := range m.subs {
		if s.TenantID == tenantID {
			out = append(out, *s.Clone())
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) CreateSubscription(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[sub.PlanID]; !ok {
		return errors.Join(ErrNotFound, ErrUnknownPlan)
	}
	if sub.Status.Live() && m.liveLocked(sub.TenantID) != nil {
		return errors.Join(ErrConflict, ErrActiveSubscriptionExists)
	}
	if sub.ExternalID != "" && m.byExternalLocked(sub.Provider, sub.ExternalID) != nil {
		return ErrConflict
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	now := m.now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	stored := sub.Clone()
	stored.Plan = nil
	m.subs[sub.ID] = stored
	return nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status, at time.Time) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, errors.Join(ErrNotFound, ErrSubscriptionNotFound)
	}
	if status.Live() && !s.Status.Live() {
		if live := m.liveLocked(s.TenantID); live != nil {
			return nil, errors.Join(ErrConflict, ErrActiveSubscriptionExists)
		}
	}
	s.Status = status
	if status == StatusCancelled && s.CancelledAt == nil {
		t := at
		s.CancelledAt = &t
	}
	s.UpdatedAt = m.now()
	return s.Clone(), nil
}

func (m *MemoryStore) UpsertFromPayment(ctx context.Context, p UpsertParams) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.PlanID]; !ok {
		return nil, errors.Join(ErrNotFound, ErrUnknownPlan)
	}
	now := m.now()

	if s := m.byExternalLocked(p.Provider, p.ExternalID); s != nil {
		if s.StaleEvent(p.EventAt) {
			return s.Clone(), nil
		}
		if err := CheckSync(ctx, s.Status, p.Status); err != nil {
			return nil, err
		}
		if p.Status.Live() && !s.Status.Live() {
			if live := m.liveLocked(s.TenantID); live != nil && live.ID != s.ID {
				return nil, errors.Join(ErrConflict, ErrActiveSubscriptionExists)
			}
		}
		s.PlanID = p.PlanID
		s.Status = p.Status
		s.CurrentPeriodEnd = p.CurrentPeriodEnd
		if p.CustomerID != "" {
			s.ExternalCustomerID = p.CustomerID
		}
		if p.Status == StatusCancelled && s.CancelledAt == nil {
			t := now
			s.CancelledAt = &t
		}
		if !p.EventAt.IsZero() {
			s.LastEventAt = eventTime(p.EventAt)
		}
		s.UpdatedAt = now
		return s.Clone(), nil
	}

	if err := CheckSync(ctx, statusNone, p.Status); err != nil {
		return nil, err
	}
	if p.Status.Live() {
		if live := m.liveLocked(p.TenantID); live != nil {
			live.Status = StatusCancelled
			t := now
			live.CancelledAt = &t
			live.UpdatedAt = now
		}
	}
	s := &Subscription{
		ID:                 uuid.New(),
		TenantID:           p.TenantID,
		PlanID:             p.PlanID,
		Status:             p.Status,
		CurrentPeriodEnd:   p.CurrentPeriodEnd,
		Provider:           p.Provider,
		ExternalID:         p.ExternalID,
		ExternalCustomerID: p.CustomerID,
		LastEventAt:        eventTime(p.EventAt),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.subs[s.ID] = s
	return s.Clone(), nil
}

func (m *MemoryStore) liveLocked(tenantID uuid.UUID) *Subscription {
	for _, s := range m.subs {
		if s.TenantID == tenantID && s.Status.Live() {
			return s
		}
	}
	return nil
}

func (m *MemoryStore) byExternalLocked(provider, externalID string) *Subscription {
	if externalID == "" {
		return nil
	}
	for _, s := range m.subs {
		if s.Provider == provider && s.ExternalID == externalID {
			return s
		}
	}
	return nil
}

func (m *MemoryStore) RecordPayment(_ context.Context, p *Payment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := p.Provider + "/" + p.ExternalRef
	if _, ok := m.payments[key]; ok {
		return false, nil
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = m.now()
	c := *p
	m.payments[key] = &c
	return true, nil
}

func (m *MemoryStore) ListPayments(_ context.Context, tenantID uuid.UUID) ([]Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Payment
	for _, p := range m.payments {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b Payment) int {
		return a.PaidAt.Compare(b.PaidAt)
	})
	return out, nil
}

func (m *MemoryStore) IsProcessed(_ context.Context, provider, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.events[provider+"/"+eventID]
	return ok, nil
}

func (m *MemoryStore) MarkProcessed(_ context.Context, provider, eventID string, _ EventType, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := provider + "/" + eventID
	if _, ok := m.events[key]; !ok {
		m.events[key] = at
	}
	return nil
}

func eventTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
