package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth/internal"
	"github.com/redis/go-redis/v9"
)

// Config holds login throttle parameters. MaxAttempts <= 0 disables
// throttling.
type Config struct {
	MaxAttempts      int
	Window           time.Duration
	EnableIPThrottle bool
}

func (c Config) disabled() bool {
	return c.MaxAttempts <= 0 || c.Window <= 0
}

// LoginLimiter is implemented by every limiter backend.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

// RedisLimiter enforces the login budget with Redis counters.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

var _ LoginLimiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a [RedisLimiter] backed by the given Redis client.
func NewRedisLimiter(redisClient redis.UniversalClient, prefix string, cfg Config) *RedisLimiter {
	if prefix == "" {
		prefix = "ta"
	}
	return &RedisLimiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited when the identifier or the IP has used
// its failure budget.
func (l *RedisLimiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if l.config.disabled() {
		return nil
	}

	for _, key := range l.keys(identifier, ip) {
		if err := l.checkCounter(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed attempt.
func (l *RedisLimiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	if l.config.disabled() {
		return nil
	}

	for _, key := range l.keys(identifier, ip) {
		if _, err := l.incrementWithTTL(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the identifier's counter after a successful login. The
// IP counter is left alone so one good account cannot launder a sprayer's
// address.
func (l *RedisLimiter) ResetLogin(ctx context.Context, identifier, _ string) error {
	if l.config.disabled() {
		return nil
	}

	if err := l.redis.Del(ctx, l.identifierKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// attempts returns the failure counter for an identifier. Missing keys
// return zero.
func (l *RedisLimiter) attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, l.identifierKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *RedisLimiter) keys(identifier, ip string) []string {
	keys := []string{l.identifierKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	return keys
}

func (l *RedisLimiter) identifierKey(identifier string) string {
	return l.prefix + ":rl:id:" + internal.TokenKey(identifier)
}

func (l *RedisLimiter) ipKey(ip string) string {
	return l.prefix + ":rl:ip:" + ip
}

func (l *RedisLimiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *RedisLimiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: TTL is set only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
