package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth/credential"
	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/logging"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/session"
	"github.com/MrEthical07/tokenauth/token"
	"github.com/redis/go-redis/v9"
)

// Logger is the structured logger accepted by the engine.
type Logger = logging.Logger

// Builder assembles an Engine. Each Builder builds exactly once.
//
// Without WithRedis the engine keeps sessions and login throttle state in
// process memory. With it, both move to Redis under Config.Session.RedisPrefix.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userStore    credential.Store
	sessionStore session.Store
	auditSink    AuditSink
	logger       Logger
	resetSender  ResetSender
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Later With* calls refine it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets Config.Token.Secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Token.Secret = cloneBytes(secret)
	return b
}

// WithRedis switches sessions and login throttling to Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore replaces the default in-memory credential store. The store
// owns password hashing; Config.Password is then ignored.
func (b *Builder) WithUserStore(store credential.Store) *Builder {
	b.userStore = store
	return b
}

// WithSessionStore replaces the session store chosen from WithRedis.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithAuditSink sets the sink audit events are delivered to. It has no
// effect unless Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for swallowed infrastructure failures.
func (b *Builder) WithLogger(logger Logger) *Builder {
	b.logger = logger
	return b
}

// WithResetSender sets where ForgotPassword delivers reset links. The
// default logs the request without the link.
func (b *Builder) WithResetSender(sender ResetSender) *Builder {
	b.resetSender = sender
	return b
}

// WithClock replaces time.Now for token expiry, session expiry and login
// throttling.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the engine counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the VerifyAccess latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}

	engine := &Engine{
		config: cfg,
		now:    now,
		logger: logger,
	}

	// -------- TOKENS --------
	codec, err := token.NewCodec(cfg.Token.Secret, token.WithClock(now))
	if err != nil {
		return nil, err
	}
	engine.codec = codec

	// -------- USERS --------
	if b.userStore != nil {
		engine.users = b.userStore
	} else {
		hasher, err := newHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
		users, err := credential.NewMemoryStore(hasher, credential.WithClock(now))
		if err != nil {
			return nil, err
		}
		engine.users = users
	}

	// -------- SESSIONS --------
	switch {
	case b.sessionStore != nil:
		engine.sessions = b.sessionStore
	case b.redis != nil:
		engine.sessions = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, session.WithClock(now))
	default:
		engine.sessions = session.NewMemoryStore(session.WithClock(now))
	}

	// -------- LOGIN THROTTLE --------
	limiterCfg := rate.Config{
		MaxAttempts:      cfg.Security.MaxLoginAttempts,
		Window:           cfg.Security.LoginCooldownDuration,
		EnableIPThrottle: cfg.Security.EnableIPThrottle,
	}
	if b.redis != nil {
		engine.limiter = rate.NewRedisLimiter(b.redis, cfg.Session.RedisPrefix, limiterCfg)
	} else {
		engine.limiter = rate.NewMemoryLimiter(limiterCfg, now)
	}

	// -------- OBSERVABILITY --------
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, func(ev AuditEvent) {
		logger.Debug(context.Background(), "audit event dropped", "event_type", ev.EventType)
	})

	engine.resetSender = b.resetSender
	if engine.resetSender == nil {
		engine.resetSender = LogResetSender{Logger: logger}
	}

	b.built = true

	return engine, nil
}

func newHasher(cfg PasswordConfig) (password.Hasher, error) {
	switch cfg.Algorithm {
	case AlgorithmArgon2id:
		return password.NewArgon2(password.Config{
			Memory:           cfg.Memory,
			Time:             cfg.Time,
			Parallelism:      cfg.Parallelism,
			SaltLength:       cfg.SaltLength,
			KeyLength:        cfg.KeyLength,
			MaxPasswordBytes: cfg.MaxPasswordBytes,
		})
	case AlgorithmBcrypt:
		return password.NewBcrypt(cfg.BcryptCost)
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
}
