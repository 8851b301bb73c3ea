package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/gpportal/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_Basic(t *testing.T) {
	t.Parallel()

	t.Run("put and get", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](3, time.Minute)
		c.Put("a", 1)
		c.Put("b", 2)

		val, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("get non-existent", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](3, time.Minute)
		val, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Zero(t, val)
	})

	t.Run("put replaces value", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](3, time.Minute)
		c.Put("a", 1)
		c.Put("a", 2)

		val, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, val)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](3, time.Minute)
		c.Put("a", 1)

		assert.True(t, c.Remove("a"))
		assert.False(t, c.Remove("a"))
		_, ok := c.Get("a")
		assert.False(t, ok)
	})

	t.Run("purge", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](3, time.Minute)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Purge()

		assert.Equal(t, 0, c.Len())
	})
}

func TestCache_Eviction(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](2, time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)

	// touch "a" so "b" becomes the oldest
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string, int](10, 30*time.Second, cache.WithClock(clock.Now))

	c.Put("a", 1)
	clock.Advance(29 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_PutResetsExpiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string, int](10, 30*time.Second, cache.WithClock(clock.Now))

	c.Put("a", 1)
	clock.Advance(20 * time.Second)
	c.Put("a", 2)
	clock.Advance(20 * time.Second)

	val, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, val)
}

func TestCache_InvalidArguments(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { cache.New[string, int](0, time.Minute) })
	assert.Panics(t, func() { cache.New[string, int](1, 0) })
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.New[int, int](100, time.Minute)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Put(n, n)
			_, _ = c.Get(n)
			c.Remove(n - 1)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 100)
}
