package officeauth

import (
	"context"
	"errors"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/jwt"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/session"
)

// Provider names reported in traces, metrics and audit events.
const (
	ProviderSession = "session"
	ProviderToken   = "token"
)

// IdentityProvider is one link of the resolution chain.
//
// ResolveIdentity returns (identity, nil) on success and (nil, nil) when the
// provider has nothing to say about the request. An error means the provider
// found a credential but could not use it; the [Resolver] treats that as
// absence and moves on.
type IdentityProvider interface {
	Name() string
	ResolveIdentity(ctx context.Context, rc *RequestContext) (*Identity, error)
}

// ProviderFunc adapts a function to [IdentityProvider].
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, rc *RequestContext) (*Identity, error)
}

func (p ProviderFunc) Name() string { return p.ProviderName }

func (p ProviderFunc) ResolveIdentity(ctx context.Context, rc *RequestContext) (*Identity, error) {
	if p.Fn == nil {
		return nil, nil
	}
	return p.Fn(ctx, rc)
}

// SessionProvider resolves the session cookie through a [session.Manager].
type SessionProvider struct {
	sessions   *session.Manager
	cookieName string
}

// NewSessionProvider reads cookieName and looks it up in sessions.
func NewSessionProvider(sessions *session.Manager, cookieName string) *SessionProvider {
	return &SessionProvider{sessions: sessions, cookieName: cookieName}
}

func (p *SessionProvider) Name() string { return ProviderSession }

func (p *SessionProvider) ResolveIdentity(ctx context.Context, rc *RequestContext) (*Identity, error) {
	if p == nil || p.sessions == nil {
		return nil, nil
	}
	token := rc.Cookie(p.cookieName)
	if token == "" {
		return nil, nil
	}

	sess, err := p.sessions.Lookup(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Identity{ID: sess.UserID, Email: sess.Email, Role: Role(sess.Role)}, nil
}

// TokenProvider verifies the bearer token with a [jwt.Manager].
type TokenProvider struct {
	tokens *jwt.Manager
}

// NewTokenProvider wraps tokens.
func NewTokenProvider(tokens *jwt.Manager) *TokenProvider {
	return &TokenProvider{tokens: tokens}
}

func (p *TokenProvider) Name() string { return ProviderToken }

func (p *TokenProvider) ResolveIdentity(_ context.Context, rc *RequestContext) (*Identity, error) {
	raw, ok := rc.BearerToken()
	if !ok {
		if rc != nil && rc.Headers != nil && rc.Headers.Get("Authorization") != "" {
			return nil, jwt.ErrTokenMalformed
		}
		return nil, nil
	}
	if p == nil || p.tokens == nil {
		return nil, jwt.ErrSigningKeyMissing
	}

	claims, err := p.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: claims.UserID, Email: claims.Email, Role: Role(claims.Role)}, nil
}

// isCredentialError reports errors caused by what the client sent rather than
// by a failing backend.
func isCredentialError(err error) bool {
	return errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, jwt.ErrTokenInvalid) ||
		errors.Is(err, jwt.ErrSigningKeyMissing)
}
