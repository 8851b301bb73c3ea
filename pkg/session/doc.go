// Package session manages authenticated portal sessions.
//
// A session binds an opaque random token to the signed-in user's identity:
// user id, rbac role and, for Gram Panchayat roles, the tenant id. The token
// travels in a signed cookie (see package cookie); session state lives in a
// Store, either MemoryStore for single-process deployments and tests or
// RedisStore for shared state.
//
// Login always issues a fresh token and deletes the previous one. Sessions
// expire after an idle timeout that slides forward on use, bounded by a
// maximum lifetime counted from creation. Refresh hooks run whenever a
// session is extended, which lets callers drop per-tenant caches.
//
//	mgr := session.New(
//		session.WithStore(session.NewRedisStore(rdb)),
//		session.WithCookieManager(cookies),
//		session.WithRefreshHook(func(ctx context.Context, s *session.Session) {
//			if s.TenantID != nil {
//				subs.Invalidate(*s.TenantID)
//			}
//		}),
//	)
//	defer mgr.Close()
//
//	r.Use(mgr.Middleware)
package session
