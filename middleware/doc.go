// Package middleware adapts the officeauth engine to net/http.
//
// # Identity
//
//   - [Authenticate] resolves the caller once per request and stores the
//     identity in the request context. It never rejects.
//   - [RequireIdentity] answers 401 when no identity was resolved.
//   - [RequireRole] answers 401 without an identity and 403 for a role outside
//     the allowed set.
//
// # Abuse protection
//
//   - [RateLimit] applies a named fixed-window budget per client IP and sets
//     the X-RateLimit-* and Retry-After headers.
//   - [Throttle] is a coarse per-IP token bucket in front of everything else.
//
// # Plumbing
//
// [RequestID], [AccessLog] and [Recover] carry request correlation, one log
// line per request and panic containment.
//
// Rejections are written as {"error": "<message>"} with the matching status.
// This package never parses tokens or cookies itself; all decisions are
// delegated to the engine.
package middleware
