package officeauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/ratelimit"
)

// Config is the complete engine configuration. It is copied by
// [Builder.WithConfig] and never mutated after [Builder.Build].
type Config struct {
	Token     TokenConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures bearer-token signing and verification.
//
// An empty Secret is accepted: the engine starts, but every verification and
// issuance fails.
type TokenConfig struct {
	Secret          []byte
	KeyID           string
	PreviousSecrets map[string][]byte
	Issuer          string
	Audience        string
	TTL             time.Duration
	Leeway          time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures cookie sessions.
type SessionConfig struct {
	CookieName   string
	CookiePath   string
	CookieSecure bool
	TTL          time.Duration
	RedisPrefix  string
	// SweepInterval paces expiry sweeps of the in-memory store. Zero disables.
	SweepInterval time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the request limiter.
//
// Rules maps an operation name (the part of the key before the colon) to its
// budget. Operations without a rule get Default.
type RateLimitConfig struct {
	Backend       string // "memory" (default) or "redis"
	RedisPrefix   string
	SweepInterval time.Duration
	FailOpen      bool
	Default       ratelimit.Options
	Rules         map[string]ratelimit.Options
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the resolve latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Rate limit operations used by the HTTP surface.
const (
	OperationRegister = "register"
	OperationLogin    = "login"
)

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Session: SessionConfig{
			CookieName:    "session",
			CookiePath:    "/",
			CookieSecure:  true,
			TTL:           30 * 24 * time.Hour,
			RedisPrefix:   "sess",
			SweepInterval: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Backend:       "memory",
			RedisPrefix:   "rl",
			SweepInterval: ratelimit.DefaultSweepInterval,
			FailOpen:      true,
			Default: ratelimit.Options{
				MaxRequests: ratelimit.DefaultMaxRequests,
				Window:      ratelimit.DefaultWindow,
			},
			Rules: map[string]ratelimit.Options{
				OperationRegister: {MaxRequests: 20, Window: time.Minute},
				OperationLogin:    {MaxRequests: 10, Window: time.Minute},
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate checks cfg for values that would make the engine misbehave.
func (c *Config) Validate() error {
	if c.Token.TTL < 0 {
		return errors.New("Token TTL must be >= 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be within [0, 2m]")
	}
	if len(c.Token.Secret) > 0 && len(c.Token.Secret) < 32 {
		return errors.New("Token Secret must be at least 32 bytes")
	}

	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("Session CookieName must not be empty")
	}
	if strings.ContainsAny(c.Session.CookieName, " ;,=\t\r\n") {
		return errors.New("Session CookieName contains invalid characters")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}

	switch c.RateLimit.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("RateLimit Backend %q is not supported", c.RateLimit.Backend)
	}
	if _, err := c.RateLimit.Default.Normalize(); err != nil {
		return fmt.Errorf("RateLimit Default: %w", err)
	}
	for op, opts := range c.RateLimit.Rules {
		if strings.TrimSpace(op) == "" || strings.Contains(op, ":") {
			return fmt.Errorf("RateLimit rule name %q is invalid", op)
		}
		if _, err := opts.Normalize(); err != nil {
			return fmt.Errorf("RateLimit rule %q: %w", op, err)
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

// Limit returns the budget for operation.
func (c RateLimitConfig) Limit(operation string) ratelimit.Options {
	if opts, ok := c.Rules[operation]; ok {
		return opts
	}
	return c.Default
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	if cfg.Token.PreviousSecrets != nil {
		out.Token.PreviousSecrets = make(map[string][]byte, len(cfg.Token.PreviousSecrets))
		for kid, secret := range cfg.Token.PreviousSecrets {
			out.Token.PreviousSecrets[kid] = cloneBytes(secret)
		}
	}
	if cfg.RateLimit.Rules != nil {
		out.RateLimit.Rules = make(map[string]ratelimit.Options, len(cfg.RateLimit.Rules))
		for op, opts := range cfg.RateLimit.Rules {
			out.RateLimit.Rules[op] = opts
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
