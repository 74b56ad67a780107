package officeauth

import (
	"time"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/ratelimit"
)

// SecurityReport summarizes the effective security posture of an engine, for
// startup logs and readiness checks.
type SecurityReport struct {
	TokensConfigured  bool
	SigningAlgorithm  string
	KeyRotationActive bool
	TokenTTL          time.Duration
	IssuerPinned      bool
	AudiencePinned    bool

	SessionTTL   time.Duration
	CookieSecure bool

	RateLimitBackend  string
	RateLimitFailOpen bool
	RateLimitRules    map[string]ratelimit.Options

	AuditEnabled   bool
	MetricsEnabled bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rules := make(map[string]ratelimit.Options, len(e.config.RateLimit.Rules))
	for op, opts := range e.config.RateLimit.Rules {
		rules[op] = opts
	}

	backend := e.config.RateLimit.Backend
	if backend == "" {
		backend = "memory"
	}

	return SecurityReport{
		TokensConfigured:  e.tokens.Configured(),
		SigningAlgorithm:  "HS256",
		KeyRotationActive: len(e.config.Token.PreviousSecrets) > 0,
		TokenTTL:          e.tokens.TTL(),
		IssuerPinned:      e.config.Token.Issuer != "",
		AudiencePinned:    e.config.Token.Audience != "",
		SessionTTL:        e.config.Session.TTL,
		CookieSecure:      e.config.Session.CookieSecure,
		RateLimitBackend:  backend,
		RateLimitFailOpen: e.config.RateLimit.FailOpen,
		RateLimitRules:    rules,
		AuditEnabled:      e.config.Audit.Enabled,
		MetricsEnabled:    e.config.Metrics.Enabled,
	}
}
