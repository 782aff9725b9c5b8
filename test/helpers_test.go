package test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend a suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis)
}

// redisModes always includes miniredis. A real standalone Redis is added
// when REDIS_ADDR is set.
func redisModes() []redisMode {
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() {
					_ = rdb.Close()
					mr.Close()
				})
				return rdb, mr
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				t.Cleanup(func() { _ = rdb.Close() })
				return rdb, nil
			},
		})
	}

	return modes
}

func newRedisEngine(t *testing.T, rdb redis.UniversalClient, prefix string) *tokenauth.Engine {
	t.Helper()

	cfg := tokenauth.DefaultConfig()
	cfg.Token.Secret = []byte("integration-secret-integration-secret")
	cfg.Password.Algorithm = tokenauth.AlgorithmBcrypt
	cfg.Password.BcryptCost = 4
	cfg.Session.RedisPrefix = prefix

	engine, err := tokenauth.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func uniquePrefix() string {
	return "ta-it-" + time.Now().Format("150405.000000000")
}
