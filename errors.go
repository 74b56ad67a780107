package officeauth

import "errors"

var (
	// ErrUnauthenticated means no identity could be resolved for the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means an identity was resolved but its role is not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned by helpers that turn a denied limiter result
	// into an error.
	ErrRateLimited = errors.New("rate limited")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSessionCreationFailed wraps store failures while starting a session.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrTokenIssueFailed wraps signing failures, including a missing secret.
	ErrTokenIssueFailed = errors.New("token issue failed")
	// ErrInvalidRole is returned when issuing credentials for an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)
