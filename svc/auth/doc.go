// Package auth signs portal users in and out.
//
// Users authenticate with email and password (bcrypt hashes). A successful
// login issues a session through pkg/session carrying the user's role and,
// for Gram Panchayat roles, their tenant. Users of an inactive tenant
// cannot sign in.
//
// The HTTP surface is mounted under /auth:
//
//	POST /auth/login   {"email": "...", "password": "..."}
//	POST /auth/logout
//	GET  /auth/me
//
// WithLoginMiddleware wraps only the login route, which is where the portal
// puts its rate limiter.
package auth
