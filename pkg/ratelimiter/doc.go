// Package ratelimiter throttles requests per key with fixed windows.
//
// The portal uses it to slow down password guessing on the login endpoint:
//
//	limiter, err := ratelimiter.New(ratelimiter.NewRedisStore(rdb), cfg)
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.ByIP, log)).Post("/login", h)
//
// Every request adds one hit to the key's current window. Once the window
// holds more than Config.Limit hits the request is rejected with 429 and a
// Retry-After header until the window ends. MemoryStore keeps windows per
// process; RedisStore shares them between replicas.
package ratelimiter
