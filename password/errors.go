package password

import "errors"

var (
	// ErrPasswordTooShort is returned by Hash for passwords under MinLength bytes.
	ErrPasswordTooShort = errors.New("password: too short")
	// ErrPasswordTooLong is returned for inputs over Config.MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password: too long")
	// ErrMalformedHash means a stored hash could not be parsed.
	ErrMalformedHash = errors.New("password: malformed hash")
	// ErrUnsupportedHash means the stored hash uses an unknown scheme.
	ErrUnsupportedHash = errors.New("password: unsupported hash scheme")
)
