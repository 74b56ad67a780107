package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// SessionTokenSize is the number of random bytes behind a session cookie.
const SessionTokenSize = 32

// NewToken returns size random bytes encoded as unpadded base64url.
func NewToken(size int) (string, error) {
	if size < 16 {
		return "", errors.New("token size too small")
	}
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken returns the hex SHA-256 digest used as a storage key for token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidTokenShape reports whether token decodes as base64url of the expected
// size. Lookups skip the store for anything else.
func ValidTokenShape(token string, size int) bool {
	if base64.RawURLEncoding.EncodedLen(size) != len(token) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}
