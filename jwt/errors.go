package jwt

import "errors"

var (
	// ErrSigningKeyMissing is returned by every operation of an unconfigured Manager.
	ErrSigningKeyMissing = errors.New("jwt: signing secret not configured")
	// ErrTokenMalformed is returned for empty or structurally invalid tokens.
	ErrTokenMalformed = errors.New("jwt: malformed token")
	// ErrTokenExpired is returned when exp is in the past beyond the leeway.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenInvalid covers bad signatures, wrong algorithm, issuer, audience or claims.
	ErrTokenInvalid = errors.New("jwt: invalid token")
)
