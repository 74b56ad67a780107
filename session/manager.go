package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/internal"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 30 * 24 * time.Hour

// Manager creates, resolves and revokes sessions on top of a [Store].
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager wraps store. A non-positive ttl selects DefaultTTL.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime applied to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for the user and returns the raw cookie token. The
// token is not retained anywhere; only its digest is stored.
func (m *Manager) Create(ctx context.Context, userID, email, role string) (string, *Session, error) {
	if userID == "" {
		return "", nil, errors.New("session: user id required")
	}

	token, err := internal.NewToken(internal.SessionTokenSize)
	if err != nil {
		return "", nil, fmt.Errorf("session: generate token: %w", err)
	}

	now := m.now()
	sess := &Session{
		ID:        internal.HashToken(token),
		UserID:    userID,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Lookup resolves a cookie token. Unknown, malformed and expired tokens all
// yield ErrNotFound; expired entries are deleted on the way out.
func (m *Manager) Lookup(ctx context.Context, token string) (*Session, error) {
	if !internal.ValidTokenShape(token, internal.SessionTokenSize) {
		return nil, ErrNotFound
	}

	id := internal.HashToken(token)
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(m.now()) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// Revoke deletes the session behind token. Revoking an unknown token succeeds.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, internal.HashToken(token))
}

// RevokeUser deletes every session of userID.
func (m *Manager) RevokeUser(ctx context.Context, userID string) (int, error) {
	return m.store.DeleteAllForUser(ctx, userID)
}
