// Package internal holds helpers private to officeauth: opaque session token
// generation and hashing.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - mocks: gomock doubles for the session store
package internal
