package tokenauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth/password"
)

// Password hashing algorithms accepted by PasswordConfig.Algorithm.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// Config holds every engine setting. Obtain one from DefaultConfig, adjust
// fields, and hand it to Builder.WithConfig.
type Config struct {
	Token         TokenConfig
	Password      PasswordConfig
	Security      SecurityConfig
	Session       SessionConfig
	PasswordReset PasswordResetConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls access token signing and refresh session lifetime.
type TokenConfig struct {
	// Secret is the HMAC-SHA256 key. Required.
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Algorithm string

	// argon2id parameters
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int

	// bcrypt work factor; 0 selects bcrypt.DefaultCost.
	BcryptCost int
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling. MaxLoginAttempts = 0 disables it.
type SecurityConfig struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableIPThrottle      bool
}

type SessionConfig struct {
	// RedisPrefix namespaces every Redis key written by the engine.
	RedisPrefix string
}

// PasswordResetConfig controls forgot-password link generation.
type PasswordResetConfig struct {
	// LinkBase is the URL the reset token is appended to as ?token=.
	LinkBase string
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration with every field but Token.Secret
// set to a usable default.
func DefaultConfig() Config {
	argon := password.DefaultConfig()
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:        AlgorithmArgon2id,
			Memory:           argon.Memory,
			Time:             argon.Time,
			Parallelism:      argon.Parallelism,
			SaltLength:       argon.SaltLength,
			KeyLength:        argon.KeyLength,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      false,
		},
		Session: SessionConfig{
			RedisPrefix: "ta",
		},
		PasswordReset: PasswordResetConfig{
			LinkBase: "http://localhost:3000/reset",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
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

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Token
	if len(c.Token.Secret) == 0 {
		return errors.New("Token Secret must be set")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}

	// Password
	switch c.Password.Algorithm {
	case AlgorithmArgon2id:
		if c.Password.Memory == 0 || c.Password.Time == 0 || c.Password.Parallelism == 0 {
			return errors.New("Password argon2id parameters must be > 0")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case AlgorithmBcrypt:
		if c.Password.BcryptCost < 0 {
			return errors.New("Password BcryptCost must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported Password Algorithm %q", c.Password.Algorithm)
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("Security MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0 when throttling is enabled")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
