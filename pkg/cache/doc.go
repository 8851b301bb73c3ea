// Package cache provides a generic, thread-safe LRU cache whose entries expire
// after a fixed time-to-live.
//
// It backs short-lived, best-effort lookups such as tenant records and tenant
// subscription snapshots. Expired entries are dropped lazily on access, so the
// cache runs no background goroutines.
//
//	c := cache.New[uuid.UUID, *subscription.Subscription](1024, 30*time.Second)
//	c.Put(tenantID, sub)
//	if sub, ok := c.Get(tenantID); ok {
//		// fresh entry
//	}
//	c.Remove(tenantID) // invalidate after a mutation
package cache
