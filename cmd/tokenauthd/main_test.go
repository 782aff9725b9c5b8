package main

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/internal/config"
	otelexport "github.com/MrEthical07/tokenauth/metrics/export/otel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineConfigFromEnvironment(t *testing.T) {
	env := map[string]string{
		"JWT_SECRET":         "0123456789abcdef0123456789abcdef",
		"ACCESS_TOKEN_TTL":   "5m",
		"REFRESH_TOKEN_TTL":  "24h",
		"PASSWORD_HASHER":    "bcrypt",
		"LOGIN_MAX_ATTEMPTS": "7",
		"LOGIN_COOLDOWN":     "2m",
		"REDIS_PREFIX":       "svc",
		"RESET_LINK_BASE":    "https://example.com/reset",
		"AUDIT_ENABLED":      "false",
		"LOGIN_IP_THROTTLE":  "on",
	}
	cfg, err := config.LoadFrom(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)

	out := engineConfig(cfg)
	require.NoError(t, out.Validate())

	assert.Equal(t, []byte(env["JWT_SECRET"]), out.Token.Secret)
	assert.Equal(t, 5*time.Minute, out.Token.AccessTTL)
	assert.Equal(t, 24*time.Hour, out.Token.RefreshTTL)
	assert.Equal(t, tokenauth.AlgorithmBcrypt, out.Password.Algorithm)
	assert.Equal(t, 7, out.Security.MaxLoginAttempts)
	assert.Equal(t, 2*time.Minute, out.Security.LoginCooldownDuration)
	assert.True(t, out.Security.EnableIPThrottle)
	assert.Equal(t, "svc", out.Session.RedisPrefix)
	assert.Equal(t, "https://example.com/reset", out.PasswordReset.LinkBase)
	assert.False(t, out.Audit.Enabled)
	assert.True(t, out.Metrics.Enabled)
}

func TestEngineConfigDefaultsBuild(t *testing.T) {
	cfg, err := config.LoadFrom(func(k string) (string, bool) {
		if k == "JWT_SECRET" {
			return "dev-secret", true
		}
		return "", false
	})
	require.NoError(t, err)

	engine, err := tokenauth.New().WithConfig(engineConfig(cfg)).Build()
	require.NoError(t, err)
	engine.Close()
}

func TestMeterProviderCollectsEngineMetrics(t *testing.T) {
	cfg := tokenauth.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Algorithm = tokenauth.AlgorithmBcrypt
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true

	engine, err := tokenauth.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	provider, reader := newMeterProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	exporter, err := otelexport.NewExporter(provider.Meter(meterName), engine)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exporter.Close() })

	ctx := context.Background()
	_, err = engine.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	_, err = engine.Login(ctx, "alice@example.com", "wrong-password")
	require.Error(t, err)

	kv, err := collectMetrics(ctx, reader)
	require.NoError(t, err)

	values := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i].(string)] = kv[i+1]
	}
	assert.Equal(t, int64(1), values["tokenauth_register_success_total"])
	assert.Equal(t, int64(1), values["tokenauth_login_failure_total"])
}
