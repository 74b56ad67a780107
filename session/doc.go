// Package session provides server-side sessions addressed by an opaque cookie
// token.
//
// # Token handling
//
// The raw token is handed to the client once, by [Manager.Create]. Stores only
// ever see its SHA-256 digest ([HashToken]), so a leaked store dump cannot be
// replayed as a cookie.
//
// # Architecture boundaries
//
// This package owns the [Session] model, the [Store] contract and its Redis and
// in-memory implementations. It does NOT read cookies from requests or decide
// which roles may do what; the officeauth façade does that.
//
// # What this package must NOT do
//
//   - Import officeauth, jwt, or middleware (no upward imports).
//   - Persist raw session tokens.
//   - Return an expired session from [Manager.Lookup].
package session
