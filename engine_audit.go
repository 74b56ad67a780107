package officeauth

import (
	"context"
	"errors"
	"time"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/jwt"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/ratelimit"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/session"
)

// AuditErrorCode is the coarse, client-safe classification stored in
// AuditEvent.Error. Raw error strings never reach sinks.
type AuditErrorCode string

const (
	auditErrUnauthenticated AuditErrorCode = "unauthenticated"
	auditErrForbidden       AuditErrorCode = "forbidden"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrTokenMalformed  AuditErrorCode = "token_malformed"
	auditErrTokenExpired    AuditErrorCode = "token_expired"
	auditErrTokenInvalid    AuditErrorCode = "token_invalid"
	auditErrSigningKey      AuditErrorCode = "signing_key_missing"
	auditErrSessionNotFound AuditErrorCode = "session_not_found"
	auditErrInvalidRole     AuditErrorCode = "invalid_role"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

type auditRecord struct {
	eventType string
	success   bool
	userID    string
	role      Role
	provider  string
	ip        string
	err       error
	metadata  func() map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, rec auditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: rec.eventType,
		UserID:    rec.userID,
		Role:      string(rec.role),
		Provider:  rec.provider,
		IP:        rec.ip,
		Success:   rec.success,
	}
	if rec.metadata != nil {
		event.Metadata = rec.metadata()
	}
	if code := auditErrorCode(rec.err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidRole):
		return auditErrInvalidRole
	case errors.Is(err, jwt.ErrSigningKeyMissing):
		return auditErrSigningKey
	case errors.Is(err, jwt.ErrTokenMalformed):
		return auditErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, session.ErrNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, session.ErrStoreUnavailable),
		errors.Is(err, ratelimit.ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
