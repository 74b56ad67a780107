package officeauth

import (
	"context"

	"go.uber.org/zap"
)

// ProviderFailure records a provider that found a credential it could not use.
type ProviderFailure struct {
	Provider string
	Err      error
}

// Trace is the outcome of one resolution pass.
type Trace struct {
	Identity *Identity
	// Source names the provider that produced Identity; empty when Identity is nil.
	Source   string
	Failures []ProviderFailure
}

// Resolver runs identity providers in fixed priority order and returns the
// first identity found. Provider errors never escape; they are logged and
// reported in the [Trace].
//
// Resolver holds no per-request state and is safe for concurrent use.
type Resolver struct {
	providers []IdentityProvider
	logger    *zap.Logger
}

// NewResolver builds a chain from providers, skipping nil entries. A nil
// logger discards output.
func NewResolver(logger *zap.Logger, providers ...IdentityProvider) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	chain := make([]IdentityProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &Resolver{providers: chain, logger: logger}
}

// Resolve returns the caller's identity or nil.
func (r *Resolver) Resolve(ctx context.Context, rc *RequestContext) *Identity {
	return r.Trace(ctx, rc).Identity
}

// Trace performs a single resolution pass and reports how it ended.
func (r *Resolver) Trace(ctx context.Context, rc *RequestContext) Trace {
	var t Trace
	if r == nil || rc == nil {
		return t
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for _, p := range r.providers {
		if ctx.Err() != nil {
			return t
		}

		id, err := p.ResolveIdentity(ctx, rc)
		if err != nil {
			t.Failures = append(t.Failures, ProviderFailure{Provider: p.Name(), Err: err})
			if isCredentialError(err) {
				r.logger.Debug("credential rejected", zap.String("provider", p.Name()), zap.Error(err))
			} else {
				r.logger.Warn("identity provider failed", zap.String("provider", p.Name()), zap.Error(err))
			}
			continue
		}
		if id != nil {
			t.Identity = id
			t.Source = p.Name()
			return t
		}
	}
	return t
}
