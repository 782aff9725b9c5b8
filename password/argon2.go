package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2ID = "argon2id"

// Lower bounds for both configured and stored parameters.
const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("argon2id memory must be >= %d KiB", minMemoryKB)
	case c.Time < minTimeCost:
		return fmt.Errorf("argon2id time must be >= %d", minTimeCost)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("argon2id parallelism must be >= %d", minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("argon2id salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("argon2id key length must be >= %d", minKeyLength)
	case c.MaxPasswordBytes < MinPasswordBytes:
		return fmt.Errorf("max password bytes must be >= %d", MinPasswordBytes)
	}
	return nil
}

// Argon2 is the argon2id Hasher. Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt b64>$<key b64>
type Argon2 struct {
	config Config
}

var _ Hasher = (*Argon2)(nil)

// NewArgon2 validates cfg and returns a hasher using it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a fresh salted argon2id hash of password. Password bytes are
// used as given, without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < MinPasswordBytes {
		return "", ErrPasswordTooShort
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	h := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
	}
	if _, err := io.ReadFull(rand.Reader, h.salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	h.key = h.derive(password, a.config.KeyLength)

	return h.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	h, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := h.derive(password, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(candidate, h.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the hasher's current config.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.parallelism < a.config.Parallelism ||
		uint32(len(h.key)) != a.config.KeyLength
	return weaker, nil
}

// phc is a decoded argon2id PHC string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phc) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, keyLen)
}

func (h phc) params() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", h.memory, h.time, h.parallelism)
}

func (h phc) String() string {
	return strings.Join([]string{
		"",
		argon2ID,
		fmt.Sprintf("v=%d", argon2.Version),
		h.params(),
		base64.StdEncoding.EncodeToString(h.salt),
		base64.StdEncoding.EncodeToString(h.key),
	}, "$")
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

// parsePHC decodes encoded strictly: the parameter segment must be exactly
// what String would produce for the parsed values.
func parsePHC(encoded string) (phc, error) {
	var h phc

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, malformed("not a PHC string")
	}
	if fields[1] != argon2ID {
		return h, malformed("unsupported algorithm " + fields[1])
	}
	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return h, malformed("unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.parallelism); err != nil {
		return h, malformed("invalid parameters")
	}
	if h.params() != fields[3] {
		return h, malformed("invalid parameters")
	}
	if h.memory < minMemoryKB || h.time < minTimeCost || h.parallelism < minParallelism {
		return h, malformed("parameters below minimum")
	}

	var err error
	if h.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return h, malformed("invalid salt")
	}
	if h.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return h, malformed("invalid key")
	}
	return h, nil
}
