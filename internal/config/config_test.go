package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(mapEnv(map[string]string{"JWT_SECRET": "dev-secret"}))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.Production())
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "ta", cfg.RedisPrefix)
	assert.Equal(t, HasherArgon2id, cfg.PasswordHasher)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LoginCooldown)
	assert.Equal(t, "http://localhost:3000/reset", cfg.ResetLinkBase)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, time.Minute, cfg.MetricsLogInterval)
	assert.False(t, cfg.LoginIPThrottle)
	assert.True(t, cfg.AuditEnabled)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(mapEnv(map[string]string{
		"JWT_SECRET":           "dev-secret",
		"PORT":                 "8080",
		"ACCESS_TOKEN_TTL":     "5m",
		"REFRESH_TOKEN_TTL":    "24h",
		"SESSION_BACKEND":      "Redis",
		"REDIS_ADDR":           "cache:6380",
		"REDIS_DB":             "2",
		"PASSWORD_HASHER":      "bcrypt",
		"LOGIN_MAX_ATTEMPTS":   "0",
		"COOKIE_SECURE":        "yes",
		"LOG_FORMAT":           "TEXT",
		"AUDIT_ENABLED":        "off",
		"METRICS_LOG_INTERVAL": "0s",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, HasherBcrypt, cfg.PasswordHasher)
	assert.Zero(t, cfg.LoginMaxAttempts)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.AuditEnabled)
	assert.Zero(t, cfg.MetricsLogInterval)
}

func TestLoadLoginIPThrottle(t *testing.T) {
	cfg, err := LoadFrom(mapEnv(map[string]string{
		"JWT_SECRET":        "dev-secret",
		"LOGIN_IP_THROTTLE": "true",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.LoginIPThrottle)

	_, err = LoadFrom(mapEnv(map[string]string{
		"JWT_SECRET":         "dev-secret",
		"LOGIN_IP_THROTTLE":  "true",
		"LOGIN_MAX_ATTEMPTS": "0",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOGIN_IP_THROTTLE")
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := LoadFrom(mapEnv(map[string]string{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = LoadFrom(mapEnv(map[string]string{"JWT_SECRET": "   "}))
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadProduction(t *testing.T) {
	_, err := LoadFrom(mapEnv(map[string]string{
		"APP_ENV":    "production",
		"JWT_SECRET": "too-short",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")

	cfg, err := LoadFrom(mapEnv(map[string]string{
		"APP_ENV":    "production",
		"JWT_SECRET": "0123456789abcdef0123456789abcdef",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.True(t, cfg.CookieSecure, "production defaults to secure cookies")

	_, err = LoadFrom(mapEnv(map[string]string{
		"APP_ENV":       "production",
		"JWT_SECRET":    "0123456789abcdef0123456789abcdef",
		"COOKIE_SECURE": "false",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COOKIE_SECURE")
}

func TestLoadReportsEveryBadValue(t *testing.T) {
	_, err := LoadFrom(mapEnv(map[string]string{
		"JWT_SECRET":         "dev-secret",
		"ACCESS_TOKEN_TTL":   "soon",
		"REDIS_DB":           "zero",
		"METRICS_ENABLED":    "maybe",
		"LOGIN_MAX_ATTEMPTS": "many",
	}))
	require.Error(t, err)

	msg := err.Error()
	for _, name := range []string{"ACCESS_TOKEN_TTL", "REDIS_DB", "METRICS_ENABLED", "LOGIN_MAX_ATTEMPTS"} {
		assert.Contains(t, msg, name)
	}
}

func TestValidateRejectsInconsistentSettings(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"ttl order", map[string]string{"ACCESS_TOKEN_TTL": "2h", "REFRESH_TOKEN_TTL": "1h"}, "shorter than"},
		{"backend", map[string]string{"SESSION_BACKEND": "etcd"}, "SESSION_BACKEND"},
		{"hasher", map[string]string{"PASSWORD_HASHER": "md5"}, "PASSWORD_HASHER"},
		{"port", map[string]string{"PORT": "70000"}, "PORT"},
		{"negative attempts", map[string]string{"LOGIN_MAX_ATTEMPTS": "-1"}, "LOGIN_MAX_ATTEMPTS"},
		{"cooldown", map[string]string{"LOGIN_COOLDOWN": "0s"}, "LOGIN_COOLDOWN"},
		{"metrics interval", map[string]string{"METRICS_LOG_INTERVAL": "-1s"}, "METRICS_LOG_INTERVAL"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vars := map[string]string{"JWT_SECRET": "dev-secret"}
			for k, v := range tc.vars {
				vars[k] = v
			}
			_, err := LoadFrom(mapEnv(vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
