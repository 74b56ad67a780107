package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no live session matches the lookup.
	ErrNotFound = errors.New("session: not found")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("session: store unavailable")
)

// Store persists sessions keyed by [Session.ID].
//
// Implementations must be safe for concurrent use. Get returns ErrNotFound for
// unknown ids; expiry is enforced by [Manager], stores may additionally drop
// entries once ExpiresAt passes.
type Store interface {
	Save(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}
