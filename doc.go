// Package officeauth resolves who is calling the registered-office API and
// whether they may proceed.
//
// A request is resolved by a fixed chain of identity providers: the session
// cookie first, then an "Authorization: Bearer" token. The first provider that
// yields an identity wins; every failure along the way, whether a missing
// cookie, an expired token or a store outage, collapses into a nil identity.
// Handlers map nil to 401, [ErrForbidden] to 403 and a denied
// [Engine.CheckRateLimit] to 429.
//
// # Architecture boundaries
//
// officeauth is the public surface. It exposes [Engine], [Builder], [Config],
// [Resolver] and the [Identity] value. Token signing lives in jwt, cookie
// sessions in session, counters in ratelimit and audit delivery in
// internal/audit.
//
// # What this package must NOT do
//
//   - Write HTTP responses (middleware and the server binary do that).
//   - Cache identities across requests.
//   - Trust a bearer token when no signing secret is configured.
//   - Surface verification details to callers.
package officeauth
