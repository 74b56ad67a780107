// Package jwt issues and verifies the bearer tokens presented by the mobile client.
//
// Tokens are HS256-signed with a pre-shared secret and carry the caller's id, email
// and role. Verification is cryptographic and temporal on every call; nothing is
// cached. A Manager built without a secret is valid but fails every operation with
// [ErrSigningKeyMissing], so a misconfigured process denies access instead of
// trusting unsigned or default-signed tokens.
package jwt
