// Package redis connects to Redis with go-redis v9.
//
// Connect retries until the server answers a PING; Healthcheck adapts a
// client to a readiness check. The client backs session storage (see
// session.RedisStore).
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
