// Package audit implements asynchronous delivery of authentication events.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zap, no-op).
//   - [Dispatcher]: buffered relay that either drops or blocks when full.
//   - [Event]: the record itself.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which events exist and when they
// fire is decided by the officeauth engine.
//
// # What this package must NOT do
//
//   - Filter events based on business rules.
//   - Import officeauth or any sibling internal package.
package audit
