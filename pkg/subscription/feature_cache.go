package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/cache"
)

// featureCache memoizes the tenant's live subscription, including the
// absence of one. It is best-effort; the authoritative path reads the store.
type featureCache struct {
	entries *cache.Cache[uuid.UUID, *Subscription]
}

func newFeatureCache(capacity int, ttl time.Duration, now func() time.Time) *featureCache {
	if capacity <= 0 || ttl <= 0 {
		return nil
	}
	return &featureCache{
		entries: cache.New[uuid.UUID, *Subscription](capacity, ttl, cache.WithClock(now)),
	}
}

func (c *featureCache) get(tenantID uuid.UUID) (*Subscription, bool) {
	if c == nil {
		return nil, false
	}
	sub, ok := c.entries.Get(tenantID)
	if !ok {
		return nil, false
	}
	return sub.Clone(), true
}

func (c *featureCache) put(tenantID uuid.UUID, sub *Subscription) {
	if c == nil {
		return
	}
	c.entries.Put(tenantID, sub.Clone())
}

func (c *featureCache) invalidate(tenantID uuid.UUID) {
	if c == nil {
		return
	}
	c.entries.Remove(tenantID)
}
