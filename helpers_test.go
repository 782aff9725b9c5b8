package tokenauth

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSecret = "test-secret-test-secret-test-secret"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testConfig keeps argon2 cheap enough for unit tests.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestEngine(t *testing.T, cfg Config, clock *fakeClock, configure func(*Builder)) *Engine {
	t.Helper()

	b := New().WithConfig(cfg).WithClock(clock.Now)
	if configure != nil {
		configure(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// engineBackends runs fn against the in-memory and the Redis-backed engine.
func engineBackends(t *testing.T, cfg Config, fn func(t *testing.T, engine *Engine, clock *fakeClock)) {
	t.Run("memory", func(t *testing.T) {
		clock := newFakeClock()
		fn(t, newTestEngine(t, cfg, clock, nil), clock)
	})
	t.Run("redis", func(t *testing.T) {
		clock := newFakeClock()
		_, client := newTestRedis(t)
		fn(t, newTestEngine(t, cfg, clock, func(b *Builder) { b.WithRedis(client) }), clock)
	})
}
