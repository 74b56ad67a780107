package officeauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	internalaudit "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/internal/audit"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/jwt"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/ratelimit"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/session"
	"go.uber.org/zap"
)

// Engine is the authentication façade used by every protected handler.
//
// All methods are safe for concurrent use once [Builder.Build] returns.
type Engine struct {
	config       Config
	logger       *zap.Logger
	sessions     *session.Manager
	tokens       *jwt.Manager
	limiter      ratelimit.Limiter
	ownedLimiter *ratelimit.MemoryLimiter
	ownedStore   *session.MemoryStore
	resolver     *Resolver
	metrics      *Metrics
	audit        *internalaudit.Dispatcher
}

// Close stops background work owned by the engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedLimiter != nil {
		e.ownedLimiter.Close()
	}
	e.ownedStore.Close()
}

// AuditDropped returns the number of audit events lost to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// SessionCookieName returns the cookie the session provider reads.
func (e *Engine) SessionCookieName() string {
	return e.config.Session.CookieName
}

// TokensConfigured reports whether bearer tokens can be issued and verified.
func (e *Engine) TokensConfigured() bool {
	return e != nil && e.tokens.Configured()
}

// ResolveIdentity returns the caller's identity, or nil. The session cookie
// wins over a bearer token; every failure is reported as nil.
func (e *Engine) ResolveIdentity(ctx context.Context, rc *RequestContext) *Identity {
	if e == nil {
		return nil
	}

	start := time.Now()
	trace := e.resolver.Trace(ctx, rc)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricResolveLatency, time.Since(start))
	}

	for _, f := range trace.Failures {
		eventType := AuditProviderFailed
		if isCredentialError(f.Err) {
			e.metrics.Inc(MetricTokenRejected)
			eventType = AuditTokenRejected
		} else {
			e.metrics.Inc(MetricResolveProviderError)
		}
		e.emitAudit(ctx, auditRecord{
			eventType: eventType,
			provider:  f.Provider,
			ip:        rc.ClientIP(),
			err:       f.Err,
		})
	}

	switch trace.Source {
	case ProviderSession:
		e.metrics.Inc(MetricResolveSession)
	case ProviderToken:
		e.metrics.Inc(MetricResolveToken)
	case "":
		e.metrics.Inc(MetricResolveAnonymous)
	}

	if trace.Identity != nil {
		e.emitAudit(ctx, auditRecord{
			eventType: AuditIdentityResolved,
			success:   true,
			userID:    trace.Identity.ID,
			role:      trace.Identity.Role,
			provider:  trace.Source,
			ip:        rc.ClientIP(),
		})
	}

	return trace.Identity
}

// Authorize checks id against the allowed roles. No roles means any known
// role is accepted. Unknown roles are always forbidden.
func (e *Engine) Authorize(ctx context.Context, id *Identity, roles ...Role) error {
	err := Authorize(id, roles...)
	if err != nil && e != nil {
		e.metrics.Inc(MetricAuthorizeDenied)
		if id != nil {
			e.emitAudit(ctx, auditRecord{
				eventType: AuditAccessDenied,
				userID:    id.ID,
				role:      id.Role,
				err:       err,
			})
		}
	}
	return err
}

// Authorize is the stateless form of [Engine.Authorize].
func Authorize(id *Identity, roles ...Role) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if !id.Role.Valid() {
		return ErrForbidden
	}
	if len(roles) > 0 && !id.HasRole(roles...) {
		return ErrForbidden
	}
	return nil
}

// CheckRateLimit applies the configured budget for operation to clientIP.
//
// A denied request is Result.Success=false with a nil error. When the limiter
// backend fails, FailOpen admits the request (logged at Warn); otherwise the
// backend error is returned.
func (e *Engine) CheckRateLimit(ctx context.Context, operation, clientIP string) (ratelimit.Result, error) {
	if e == nil {
		return ratelimit.Result{}, ErrEngineNotReady
	}

	opts := e.config.RateLimit.Limit(operation)
	key := ratelimit.Key(operation, clientIP)

	res, err := e.limiter.Check(ctx, key, opts)
	if err != nil {
		if errors.Is(err, ratelimit.ErrEmptyKey) || errors.Is(err, ratelimit.ErrInvalidOptions) {
			return ratelimit.Result{}, err
		}
		e.metrics.Inc(MetricRateLimitBackendError)
		if !e.config.RateLimit.FailOpen {
			e.logger.Error("rate limiter unavailable, rejecting", zap.String("operation", operation), zap.Error(err))
			return ratelimit.Result{}, err
		}
		e.logger.Warn("rate limiter unavailable, admitting", zap.String("operation", operation), zap.Error(err))
		normalized, _ := opts.Normalize()
		return ratelimit.Result{
			Success:   true,
			Remaining: normalized.MaxRequests,
			Limit:     normalized.MaxRequests,
			ResetAt:   time.Now().Add(normalized.Window),
		}, nil
	}

	if res.Success {
		e.metrics.Inc(MetricRateLimitAllowed)
		return res, nil
	}

	e.metrics.Inc(MetricRateLimitDenied)
	e.emitAudit(ctx, auditRecord{
		eventType: AuditRateLimited,
		ip:        clientIP,
		err:       ErrRateLimited,
		metadata: func() map[string]string {
			return map[string]string{"operation": operation}
		},
	})
	return res, nil
}

// IssueToken signs a bearer token for id. It fails with ErrTokenIssueFailed
// (wrapping jwt.ErrSigningKeyMissing) when no secret is configured.
func (e *Engine) IssueToken(ctx context.Context, id Identity) (string, time.Time, error) {
	if e == nil {
		return "", time.Time{}, ErrEngineNotReady
	}
	if !id.Role.Valid() {
		return "", time.Time{}, ErrInvalidRole
	}

	token, err := e.tokens.Issue(id.ID, id.Email, string(id.Role))
	if err != nil {
		e.emitAudit(ctx, auditRecord{eventType: AuditTokenIssued, userID: id.ID, role: id.Role, err: err})
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrTokenIssueFailed, err)
	}

	e.metrics.Inc(MetricTokenIssued)
	e.emitAudit(ctx, auditRecord{eventType: AuditTokenIssued, success: true, userID: id.ID, role: id.Role})
	return token, time.Now().Add(e.tokens.TTL()), nil
}

// StartSession stores a new session for id and returns the cookie to set.
func (e *Engine) StartSession(ctx context.Context, id Identity, clientIP string) (*http.Cookie, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if !id.Role.Valid() {
		return nil, ErrInvalidRole
	}

	token, sess, err := e.sessions.Create(ctx, id.ID, id.Email, string(id.Role))
	if err != nil {
		e.logger.Warn("session create failed", zap.String("user_id", id.ID), zap.Error(err))
		e.emitAudit(ctx, auditRecord{eventType: AuditSessionCreated, userID: id.ID, role: id.Role, ip: clientIP, err: err})
		return nil, fmt.Errorf("%w: %w", ErrSessionCreationFailed, err)
	}

	e.metrics.Inc(MetricSessionCreated)
	e.emitAudit(ctx, auditRecord{eventType: AuditSessionCreated, success: true, userID: id.ID, role: id.Role, ip: clientIP})

	return e.sessionCookie(token, sess.ExpiresAt), nil
}

// EndSession revokes the session named by the request cookie, if any, and
// returns a cookie that clears it on the client.
func (e *Engine) EndSession(ctx context.Context, rc *RequestContext) (*http.Cookie, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	expired := e.sessionCookie("", time.Unix(0, 0))
	expired.MaxAge = -1

	token := rc.Cookie(e.config.Session.CookieName)
	if token == "" {
		return expired, nil
	}

	var userID string
	if sess, err := e.sessions.Lookup(ctx, token); err == nil {
		userID = sess.UserID
	}
	if err := e.sessions.Revoke(ctx, token); err != nil {
		return expired, err
	}

	e.metrics.Inc(MetricSessionRevoked)
	e.emitAudit(ctx, auditRecord{eventType: AuditSessionRevoked, success: true, userID: userID, ip: rc.ClientIP()})
	return expired, nil
}

// RevokeUserSessions ends every session of userID, e.g. after a suspension.
func (e *Engine) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.RevokeUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		e.metrics.Inc(MetricSessionRevoked)
	}
	if n > 0 {
		e.emitAudit(ctx, auditRecord{
			eventType: AuditSessionRevoked,
			success:   true,
			userID:    userID,
			metadata: func() map[string]string {
				return map[string]string{"scope": "all", "count": fmt.Sprint(n)}
			},
		})
	}
	return n, nil
}

func (e *Engine) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Session.CookieName,
		Value:    value,
		Path:     e.config.Session.CookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   e.config.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
