package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// MinLength is the shortest password accepted for new hashes.
const MinLength = 8

// DefaultMaxPasswordBytes caps the input fed to argon2 when
// Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

// Lower bounds for both configured and parsed parameters.
var floor = Config{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

// DefaultConfig follows the OWASP argon2id baseline.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MaxPasswordBytes rejects longer inputs before hashing. Zero selects
	// DefaultMaxPasswordBytes.
	MaxPasswordBytes int
}

func (c Config) validate() error {
	switch {
	case c.Memory < floor.Memory:
		return fmt.Errorf("password: memory must be >= %d KiB", floor.Memory)
	case c.Time < floor.Time:
		return fmt.Errorf("password: time must be >= %d", floor.Time)
	case c.Parallelism < floor.Parallelism:
		return fmt.Errorf("password: parallelism must be >= %d", floor.Parallelism)
	case c.SaltLength < floor.SaltLength:
		return fmt.Errorf("password: salt length must be >= %d", floor.SaltLength)
	case c.KeyLength < floor.KeyLength:
		return fmt.Errorf("password: key length must be >= %d", floor.KeyLength)
	case c.MaxPasswordBytes < 0:
		return fmt.Errorf("password: max bytes must be >= 0")
	}
	return nil
}

// Argon2 produces and checks argon2id PHC strings.
type Argon2 struct {
	config Config
}

// NewArgon2 rejects parameters below the package minimums.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC string for password with a fresh random salt.
// Length is measured in bytes; no Unicode normalization is applied.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
	}
	if _, err := rand.Read(p.salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	p.key = p.derive(password, a.config.KeyLength)

	return p.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := p.derive(password, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than a, or with a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism ||
		uint32(len(p.key)) != a.config.KeyLength
	return weaker, nil
}

// phc is a decoded $argon2id$ string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, keyLen)
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return phc{}, fmt.Errorf("%w: expected 5 PHC fields", ErrMalformedHash)
	}
	if fields[1] != algorithmID {
		return phc{}, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return phc{}, fmt.Errorf("%w: version field %q", ErrMalformedHash, fields[2])
	}
	if version != argon2.Version {
		return phc{}, fmt.Errorf("%w: argon2 version %d", ErrMalformedHash, version)
	}

	var p phc
	_, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism)
	// the round trip rejects trailing, reordered or zero-padded parameters
	if err != nil || fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.parallelism) != fields[3] {
		return phc{}, fmt.Errorf("%w: parameter field %q", ErrMalformedHash, fields[3])
	}
	if p.memory < floor.Memory || p.time < floor.Time || p.parallelism < floor.Parallelism {
		return phc{}, fmt.Errorf("%w: parameters below minimum", ErrMalformedHash)
	}

	if p.salt, err = decodeB64(fields[4]); err != nil || uint32(len(p.salt)) < floor.SaltLength {
		return phc{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.key, err = decodeB64(fields[5]); err != nil || len(p.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return p, nil
}

// decodeB64 accepts padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
