package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	phcPrefix             = "$argon2id$"
)

// DefaultMaxPasswordBytes bounds hashing work when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrPasswordTooLarge is returned by Hash and Verify for inputs above MaxPasswordBytes.
	ErrPasswordTooLarge = errors.New("password exceeds maximum size")
	// ErrMalformedHash wraps every failure to read a stored hash.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrWeakConfig is returned by [NewArgon2] for parameters below the cost floor.
	ErrWeakConfig = errors.New("argon2 parameters below minimum")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the cost parameters used by the reference service.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory must be >= %d KiB", ErrWeakConfig, minMemoryKB)
	case c.Time < minTimeCost:
		return fmt.Errorf("%w: time must be >= %d", ErrWeakConfig, minTimeCost)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("%w: parallelism must be >= %d", ErrWeakConfig, minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrWeakConfig, minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrWeakConfig, minKeyLength)
	}
	return nil
}

// Argon2 hashes and verifies account passwords. Safe for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg against the minimum cost floor.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// phcHash is the decoded form of
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
// with unpadded standard base64 for salt and key.
type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phcHash) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix, argon2.Version,
		h.memory, h.time, h.parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func (h phcHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
}

// Hash returns a PHC-encoded Argon2id hash of password. The raw bytes are
// hashed exactly as provided; no Unicode normalization is applied.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < DefaultMinLength {
		return "", ErrTooShort
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLarge
	}

	h := phcHash{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := io.ReadFull(rand.Reader, h.salt); err != nil {
		return "", err
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// Verify reports whether password matches encoded. A malformed hash is an
// error wrapping [ErrMalformedHash]; a wrong password is (false, nil).
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLarge
	}
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the current configuration, or with a different key length.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > h.memory ||
		a.config.Time > h.time ||
		a.config.Parallelism > h.parallelism ||
		a.config.KeyLength != uint32(len(h.key)), nil
}

func parsePHC(encoded string) (phcHash, error) {
	var h phcHash

	rest, ok := strings.CutPrefix(encoded, phcPrefix)
	if !ok {
		return h, fmt.Errorf("%w: not an argon2id hash", ErrMalformedHash)
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return h, fmt.Errorf("%w: expected 4 sections after the algorithm", ErrMalformedHash)
	}

	if fields[0] != fmt.Sprintf("v=%d", argon2.Version) {
		return h, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[0])
	}

	var (
		memory, time uint32
		parallelism  uint8
	)
	n, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &memory, &time, &parallelism)
	if err != nil || n != 3 || fmt.Sprintf("m=%d,t=%d,p=%d", memory, time, parallelism) != fields[1] {
		return h, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	if memory < minMemoryKB || time < minTimeCost || parallelism < minParallelism {
		return h, fmt.Errorf("%w: parameters below minimum", ErrMalformedHash)
	}

	salt, err := decodeB64(fields[2])
	if err != nil || len(salt) < int(minSaltLength) {
		return h, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	key, err := decodeB64(fields[3])
	if err != nil || len(key) == 0 {
		return h, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	h.memory, h.time, h.parallelism = memory, time, parallelism
	h.salt, h.key = salt, key
	return h, nil
}

// decodeB64 accepts padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
