// Package config loads tokenauthd settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort             = "3000"
	defaultAppEnv           = "development"
	defaultAccessTTL        = "15m"
	defaultRefreshTTL       = "168h"
	defaultSessionBackend   = BackendMemory
	defaultRedisAddr        = "localhost:6379"
	defaultRedisPrefix      = "ta"
	defaultPasswordHasher   = HasherArgon2id
	defaultLoginMaxAttempts = "5"
	defaultLoginCooldown    = "15m"
	defaultMetricsLogEvery  = "1m"
	defaultResetLinkBase    = "http://localhost:3000/reset"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"

	minProductionSecretBytes = 32
)

// Session backends and password hashers accepted by the loader.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"
)

// ErrMissingSecret is returned when JWT_SECRET is unset.
var ErrMissingSecret = errors.New("JWT_SECRET must be set")

// Config is the daemon configuration.
type Config struct {
	Port         string
	AppEnv       string
	CookieSecure bool

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string

	PasswordHasher string

	LoginMaxAttempts int
	LoginCooldown    time.Duration
	LoginIPThrottle  bool

	ResetLinkBase string

	LogLevel  string
	LogFormat string

	MetricsEnabled bool
	// MetricsLogInterval is how often OpenTelemetry metrics are collected
	// and logged. Zero disables the collection loop.
	MetricsLogInterval time.Duration
	AuditEnabled       bool
}

// Production reports whether APP_ENV names a production deployment.
func (c *Config) Production() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "production" || env == "prod"
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads settings through lookup, which has the shape of
// os.LookupEnv.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}
	cfg := &Config{}

	cfg.Port = env.str("PORT", defaultPort)
	cfg.AppEnv = strings.ToLower(env.str("APP_ENV", defaultAppEnv))
	cfg.JWTSecret = env.str("JWT_SECRET", "")

	cfg.CookieSecure = cfg.Production()
	if _, ok := env.raw("COOKIE_SECURE"); ok {
		cfg.CookieSecure = env.boolean("COOKIE_SECURE", "false")
	}

	cfg.AccessTTL = env.duration("ACCESS_TOKEN_TTL", defaultAccessTTL)
	cfg.RefreshTTL = env.duration("REFRESH_TOKEN_TTL", defaultRefreshTTL)

	cfg.SessionBackend = strings.ToLower(env.str("SESSION_BACKEND", defaultSessionBackend))
	cfg.RedisAddr = env.str("REDIS_ADDR", defaultRedisAddr)
	cfg.RedisPassword = env.str("REDIS_PASSWORD", "")
	cfg.RedisDB = env.integer("REDIS_DB", "0")
	cfg.RedisPrefix = env.str("REDIS_PREFIX", defaultRedisPrefix)

	cfg.PasswordHasher = strings.ToLower(env.str("PASSWORD_HASHER", defaultPasswordHasher))

	cfg.LoginMaxAttempts = env.integer("LOGIN_MAX_ATTEMPTS", defaultLoginMaxAttempts)
	cfg.LoginCooldown = env.duration("LOGIN_COOLDOWN", defaultLoginCooldown)
	cfg.LoginIPThrottle = env.boolean("LOGIN_IP_THROTTLE", "false")

	cfg.ResetLinkBase = env.str("RESET_LINK_BASE", defaultResetLinkBase)

	cfg.LogLevel = strings.ToLower(env.str("LOG_LEVEL", defaultLogLevel))
	cfg.LogFormat = strings.ToLower(env.str("LOG_FORMAT", defaultLogFormat))

	cfg.MetricsEnabled = env.boolean("METRICS_ENABLED", "true")
	cfg.MetricsLogInterval = env.duration("METRICS_LOG_INTERVAL", defaultMetricsLogEvery)
	cfg.AuditEnabled = env.boolean("AUDIT_ENABLED", "true")

	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingSecret)
	} else if c.Production() && len(c.JWTSecret) < minProductionSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretBytes))
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid TCP port, got %q", c.Port))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be > 0"))
	}
	if c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be > 0"))
	}
	if c.RefreshTTL > 0 && c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}
	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR must be set when SESSION_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.SessionBackend))
	}
	switch c.PasswordHasher {
	case HasherArgon2id, HasherBcrypt:
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASHER must be %q or %q, got %q", HasherArgon2id, HasherBcrypt, c.PasswordHasher))
	}
	if c.LoginMaxAttempts < 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be >= 0"))
	}
	if c.LoginMaxAttempts > 0 && c.LoginCooldown <= 0 {
		errs = append(errs, errors.New("LOGIN_COOLDOWN must be > 0 when throttling is enabled"))
	}
	if c.LoginIPThrottle && c.LoginMaxAttempts == 0 {
		errs = append(errs, errors.New("LOGIN_IP_THROTTLE requires LOGIN_MAX_ATTEMPTS > 0"))
	}
	if c.MetricsLogInterval < 0 {
		errs = append(errs, errors.New("METRICS_LOG_INTERVAL must be >= 0"))
	}
	if c.Production() && !c.CookieSecure {
		errs = append(errs, errors.New("COOKIE_SECURE must be true in production"))
	}

	return errors.Join(errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) raw(name string) (string, bool) {
	v, ok := e.lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(name, fallback string) string {
	if v, ok := e.raw(name); ok {
		return v
	}
	return fallback
}

func (e *envReader) duration(name, fallback string) time.Duration {
	value := e.str(name, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s value %q: %w", name, value, err))
	}
	return d
}

func (e *envReader) integer(name, fallback string) int {
	value := e.str(name, fallback)
	n, err := strconv.Atoi(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s value %q: %w", name, value, err))
	}
	return n
}

func (e *envReader) boolean(name, fallback string) bool {
	value := strings.ToLower(e.str(name, fallback))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		e.errs = append(e.errs, fmt.Errorf("invalid %s value %q", name, value))
		return false
	}
}
