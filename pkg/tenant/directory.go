package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/cache"
)

// Directory is a read-through cache in front of a Store.
type Directory struct {
	store Store
	cache *cache.Cache[uuid.UUID, *Tenant]
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*directoryOptions)

type directoryOptions struct {
	capacity int
	ttl      time.Duration
	clock    func() time.Time
}

// WithCacheSize sets the cache capacity and entry lifetime.
func WithCacheSize(capacity int, ttl time.Duration) DirectoryOption {
	return func(o *directoryOptions) {
		o.capacity = capacity
		o.ttl = ttl
	}
}

// WithCacheClock overrides the time source used for cache expiry.
func WithCacheClock(now func() time.Time) DirectoryOption {
	return func(o *directoryOptions) {
		o.clock = now
	}
}

// NewDirectory wraps store with a cache of 1000 tenants for five minutes
// unless overridden.
func NewDirectory(store Store, opts ...DirectoryOption) *Directory {
	if store == nil {
		panic("tenant: store is required")
	}

	o := directoryOptions{capacity: 1000, ttl: 5 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	var cacheOpts []cache.Option
	if o.clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(o.clock))
	}

	return &Directory{
		store: store,
		cache: cache.New[uuid.UUID, *Tenant](o.capacity, o.ttl, cacheOpts...),
	}
}

// Get returns the tenant, serving from cache when possible. Misses are not
// cached.
func (d *Directory) Get(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	if t, ok := d.cache.Get(id); ok {
		return t, nil
	}

	t, err := d.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.Put(id, t)
	return t, nil
}

// TenantExists reports whether id names a known tenant.
func (d *Directory) TenantExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := d.Get(ctx, id); err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Invalidate drops the cached copy of id.
func (d *Directory) Invalidate(id uuid.UUID) {
	d.cache.Remove(id)
}
