// Package ratelimit provides fixed-window request limiting keyed by an arbitrary
// caller-supplied string, typically "<operation>:<client-ip>".
//
// # Window semantics
//
// Each key owns one counter and one reset deadline. The first hit in a window
// creates the entry with count=1 and resetAt=now+window. Hits inside the window
// increment the counter while it is below MaxRequests; once the budget is spent
// further hits are denied and do NOT increment. After resetAt the next hit starts
// a fresh window. Windows never slide.
//
// # Backends
//
//   - [MemoryLimiter]: process-local, sharded mutex map with a periodic sweep.
//   - [RedisLimiter]: shared across instances, one atomic Lua script per check.
//
// # What this package must NOT do
//
//   - Produce HTTP responses (the middleware package translates denials to 429).
//   - Approximate counts. Admission under concurrent load is exact per key.
package ratelimit
