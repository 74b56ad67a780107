package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config defines signing and validation parameters for bearer tokens.
//
// Config values are read once at startup and treated as immutable afterwards.
type Config struct {
	// Secret is the HS256 key. Empty puts the Manager in fail-closed mode.
	Secret []byte
	// KeyID is stamped into the "kid" header of issued tokens when set.
	KeyID string
	// PreviousSecrets maps retired key ids to secrets still accepted for
	// verification during a rotation.
	PreviousSecrets map[string][]byte

	TTL          time.Duration
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
}

// Claims is the payload of a bearer token.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies bearer tokens.
//
// Manager is safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a Manager.
//
// A missing Secret is not an error: the Manager is returned unconfigured and
// every Issue/Verify call fails with ErrSigningKeyMissing.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL < 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("jwt: invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, secret := range cfg.PreviousSecrets {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("jwt: previous secret map contains empty kid")
		}
		if len(secret) == 0 {
			return nil, fmt.Errorf("jwt: previous secret for kid %q is empty", kid)
		}
		if kid == cfg.KeyID {
			return nil, fmt.Errorf("jwt: kid %q is both current and previous", kid)
		}
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// Configured reports whether a signing secret is present.
func (m *Manager) Configured() bool {
	return m != nil && len(m.config.Secret) > 0
}

// TTL returns the lifetime applied to issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs a token for the given identity fields.
func (m *Manager) Issue(userID, email, role string) (string, error) {
	if !m.Configured() {
		return "", ErrSigningKeyMissing
	}
	if userID == "" {
		return "", errors.New("jwt: user id required")
	}

	now := m.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, expiry and the optional issuer/audience,
// then returns the claims. It never panics on malformed input.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if !m.Configured() {
		return nil, ErrSigningKeyMissing
	}
	if strings.TrimSpace(tokenStr) == "" {
		return nil, ErrTokenMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing id claim", ErrTokenInvalid)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrTokenInvalid)
	}

	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" || kid == m.config.KeyID {
		if kid == "" && m.config.KeyID != "" && len(m.config.PreviousSecrets) > 0 {
			return nil, errors.New("missing kid")
		}
		return m.config.Secret, nil
	}

	if secret, ok := m.config.PreviousSecrets[kid]; ok {
		return secret, nil
	}
	return nil, errors.New("unknown kid")
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
