// Package appconfig loads the officeauth server configuration from the
// environment and turns it into engine, logger and backend settings.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/jwt"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig is the process configuration. Every field maps to one variable.
type AppConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Secret may be empty: the server starts and rejects every bearer token.
	Secret      string        `env:"AUTH_SECRET"`
	KeyID       string        `env:"AUTH_KEY_ID"`
	Issuer      string        `env:"AUTH_ISSUER" envDefault:"mmk-registered-office"`
	Audience    string        `env:"AUTH_AUDIENCE"`
	TokenTTL    time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"168h"`
	TokenLeeway time.Duration `env:"AUTH_TOKEN_LEEWAY" envDefault:"0s"`

	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	RateLimitBackend  string  `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitFailOpen bool    `env:"RATE_LIMIT_FAIL_OPEN" envDefault:"true"`
	ThrottleRPS       float64 `env:"THROTTLE_RPS" envDefault:"0"`
	ThrottleBurst     int     `env:"THROTTLE_BURST" envDefault:"0"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	AuditEnabled   bool `env:"AUDIT_ENABLED" envDefault:"true"`

	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads envFile (".env" when empty) if it exists, then parses the
// environment. Variables already set win over the file.
func Load(envFile string) (AppConfig, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return AppConfig{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// EngineConfig maps the process configuration onto the engine.
func (c AppConfig) EngineConfig() officeauth.Config {
	cfg := officeauth.DefaultConfig()

	if c.Secret != "" {
		cfg.Token.Secret = []byte(c.Secret)
	}
	cfg.Token.KeyID = c.KeyID
	cfg.Token.Issuer = c.Issuer
	cfg.Token.Audience = c.Audience
	cfg.Token.TTL = c.TokenTTL
	cfg.Token.Leeway = c.TokenLeeway

	cfg.Session.CookieName = c.CookieName
	cfg.Session.CookieSecure = c.CookieSecure
	cfg.Session.TTL = c.SessionTTL

	cfg.RateLimit.Backend = c.RateLimitBackend
	cfg.RateLimit.FailOpen = c.RateLimitFailOpen

	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	cfg.Audit.Enabled = c.AuditEnabled

	return cfg
}

// TokenManager builds a standalone verifier with the same settings the
// engine uses, for the token subcommands.
func (c AppConfig) TokenManager() (*jwt.Manager, error) {
	var secret []byte
	if c.Secret != "" {
		secret = []byte(c.Secret)
	}
	return jwt.NewManager(jwt.Config{
		Secret:   secret,
		KeyID:    c.KeyID,
		TTL:      c.TokenTTL,
		Issuer:   c.Issuer,
		Audience: c.Audience,
		Leeway:   c.TokenLeeway,
	})
}
