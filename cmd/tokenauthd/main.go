// Command tokenauthd serves the tokenauth HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi"
	"github.com/MrEthical07/tokenauth/internal/config"
	"github.com/MrEthical07/tokenauth/internal/logging"
	otelexport "github.com/MrEthical07/tokenauth/metrics/export/otel"
	promexport "github.com/MrEthical07/tokenauth/metrics/export/prometheus"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

const (
	shutdownTimeout  = 10 * time.Second
	redisPingTimeout = 5 * time.Second
	meterName        = "github.com/MrEthical07/tokenauth"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tokenauthd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := tokenauth.New().
		WithConfig(engineConfig(cfg)).
		WithLogger(logger).
		WithResetSender(tokenauth.LogResetSender{
			Logger:      logger,
			IncludeLink: !cfg.Production(),
		})

	if cfg.AuditEnabled {
		builder.WithAuditSink(tokenauth.NewSlogSink(logger.Slog().With("component", "audit")))
	}

	var client *redis.Client
	if cfg.SessionBackend == config.BackendRedis {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promexport.NewExporter(engine).Handler()

		provider, reader := newMeterProvider()
		otel.SetMeterProvider(provider)
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.Warn(context.Background(), "meter provider shutdown", "error", err)
			}
		}()

		exporter, err := otelexport.NewExporter(otel.GetMeterProvider().Meter(meterName), engine)
		if err != nil {
			return fmt.Errorf("otel exporter: %w", err)
		}
		defer exporter.Close()

		if cfg.MetricsLogInterval > 0 {
			go logMetrics(ctx, reader, logger, cfg.MetricsLogInterval)
		}
	}

	api := httpapi.New(engine, httpapi.Options{
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
		Metrics:      metricsHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening",
			"addr", srv.Addr,
			"env", cfg.AppEnv,
			"session_backend", cfg.SessionBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// engineConfig maps daemon settings onto the engine configuration.
func engineConfig(cfg *config.Config) tokenauth.Config {
	out := tokenauth.DefaultConfig()

	out.Token.Secret = []byte(cfg.JWTSecret)
	out.Token.AccessTTL = cfg.AccessTTL
	out.Token.RefreshTTL = cfg.RefreshTTL

	switch cfg.PasswordHasher {
	case config.HasherBcrypt:
		out.Password.Algorithm = tokenauth.AlgorithmBcrypt
	default:
		out.Password.Algorithm = tokenauth.AlgorithmArgon2id
	}

	out.Security.MaxLoginAttempts = cfg.LoginMaxAttempts
	out.Security.LoginCooldownDuration = cfg.LoginCooldown
	out.Security.EnableIPThrottle = cfg.LoginIPThrottle
	out.Session.RedisPrefix = cfg.RedisPrefix
	out.PasswordReset.LinkBase = cfg.ResetLinkBase
	out.Audit.Enabled = cfg.AuditEnabled
	out.Metrics.Enabled = cfg.MetricsEnabled
	out.Metrics.EnableLatencyHistograms = cfg.MetricsEnabled

	return out
}
