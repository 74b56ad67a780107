package officeauth

import (
	"errors"
	"fmt"

	internalaudit "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/internal/audit"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/jwt"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/ratelimit"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. It is single-use: a second Build fails.
type Builder struct {
	config Config
	logger *zap.Logger
	redis  redis.UniversalClient

	sessionStore session.Store
	limiter      ratelimit.Limiter
	auditSink    AuditSink
	extra        []IdentityProvider

	built bool
}

// New starts a Builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRedis enables Redis-backed sessions, and Redis-backed rate limiting
// when RateLimit.Backend is "redis".
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the session store chosen from the Redis client.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithLimiter overrides the limiter chosen from RateLimit.Backend. The engine
// does not close a limiter supplied this way.
func (b *Builder) WithLimiter(l ratelimit.Limiter) *Builder {
	b.limiter = l
	return b
}

// WithAuditSink sets where audit events go when Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithProvider appends a provider consulted after the session and token
// providers.
func (b *Builder) WithProvider(p IdentityProvider) *Builder {
	if p != nil {
		b.extra = append(b.extra, p)
	}
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- SESSIONS --------
	store := b.sessionStore
	var ownedStore *session.MemoryStore
	built := false
	defer func() {
		if !built {
			ownedStore.Close()
		}
	}()
	if store == nil {
		if b.redis != nil {
			store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
		} else {
			ownedStore = session.NewMemoryStore(session.WithSweepInterval(cfg.Session.SweepInterval))
			store = ownedStore
		}
	}
	sessions, err := session.NewManager(store, cfg.Session.TTL)
	if err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		Secret:          cloneBytes(cfg.Token.Secret),
		KeyID:           cfg.Token.KeyID,
		PreviousSecrets: cfg.Token.PreviousSecrets,
		TTL:             cfg.Token.TTL,
		Issuer:          cfg.Token.Issuer,
		Audience:        cfg.Token.Audience,
		Leeway:          cfg.Token.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}
	if !tokens.Configured() {
		logger.Warn("no token signing secret configured; bearer tokens will be rejected")
	}

	// -------- RATE LIMITER --------
	limiter := b.limiter
	var owned *ratelimit.MemoryLimiter
	if limiter == nil {
		switch cfg.RateLimit.Backend {
		case "redis":
			if b.redis == nil {
				return nil, errors.New("RateLimit Backend redis requires a redis client")
			}
			limiter = ratelimit.NewRedisLimiter(b.redis, cfg.RateLimit.RedisPrefix)
		default:
			owned = ratelimit.NewMemoryLimiter(ratelimit.WithSweepInterval(cfg.RateLimit.SweepInterval))
			limiter = owned
		}
	}

	providers := make([]IdentityProvider, 0, 2+len(b.extra))
	providers = append(providers,
		NewSessionProvider(sessions, cfg.Session.CookieName),
		NewTokenProvider(tokens),
	)
	providers = append(providers, b.extra...)

	engine := &Engine{
		config:       cfg,
		logger:       logger,
		sessions:     sessions,
		tokens:       tokens,
		limiter:      limiter,
		ownedLimiter: owned,
		ownedStore:   ownedStore,
		resolver:     NewResolver(logger, providers...),
		metrics:      NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true
	built = true

	return engine, nil
}
