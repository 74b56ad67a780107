package officeauth

import (
	"io"

	internalaudit "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is the record handed to an [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink consumes audit events. Emit runs on the dispatcher goroutine, never
// on the request path.
type AuditSink = internalaudit.Sink

// Audit event types.
const (
	AuditIdentityResolved = "identity_resolved"
	AuditTokenRejected    = "token_rejected"
	AuditProviderFailed   = "provider_failed"
	AuditRateLimited      = "rate_limited"
	AuditAccessDenied     = "access_denied"
	AuditSessionCreated   = "session_created"
	AuditSessionRevoked   = "session_revoked"
	AuditTokenIssued      = "token_issued"
)

// NewChannelSink returns a sink that buffers events in a channel, mostly for
// tests.
func NewChannelSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) *internalaudit.JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink logs events through logger.
func NewZapSink(logger *zap.Logger) *internalaudit.ZapSink {
	return internalaudit.NewZapSink(logger)
}
