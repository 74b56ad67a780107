package ratelimit

import "errors"

var (
	// ErrEmptyKey is returned when Check is called without a key.
	ErrEmptyKey = errors.New("ratelimit: empty key")
	// ErrInvalidOptions is returned for negative MaxRequests or Window values.
	ErrInvalidOptions = errors.New("ratelimit: invalid options")
	// ErrBackendUnavailable wraps storage failures of distributed backends.
	ErrBackendUnavailable = errors.New("ratelimit: backend unavailable")
	// ErrClosed is returned by a limiter after Close.
	ErrClosed = errors.New("ratelimit: limiter closed")
)
