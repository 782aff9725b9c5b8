// Command tokenauth-loadtest measures refresh session store latency and
// checks that contended rotations produce a single winner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const sessionTTL = 24 * time.Hour

type slot struct {
	mu    sync.Mutex
	token string
}

func main() {
	var (
		backend     = flag.String("backend", "redis", "session store: memory or redis")
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate, rotate)")
		contenders  = flag.Int("contenders", 16, "goroutines racing to rotate one token")
		rounds      = flag.Int("rounds", 200, "contended rotation rounds")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "ta-load", "redis key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *contenders <= 1 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops and rounds must be > 0; contenders must be > 1")
		os.Exit(2)
	}

	store, cleanup, err := openStore(*backend, *redisAddr, *prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()

	slots, issueStats, err := runIssuePhase(ctx, store, *sessions, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	validateStats := runValidatePhase(ctx, store, slots, *ops, *concurrency)
	rotateStats := runRotatePhase(ctx, store, slots, *ops, *concurrency)
	violations, err := runContentionPhase(ctx, store, *rounds, *contenders)
	if err != nil {
		fmt.Fprintf(os.Stderr, "contention phase failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("validate", validateStats)
	printStats("rotate", rotateStats)
	fmt.Printf("contention: rounds=%d contenders=%d violations=%d\n", *rounds, *contenders, violations)

	if violations > 0 {
		os.Exit(1)
	}
}

func openStore(backend, addr, prefix string) (session.Store, func(), error) {
	switch backend {
	case "memory":
		fmt.Println("using in-memory store")
		return session.NewMemoryStore(), func() {}, nil
	case "redis":
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}

	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return session.NewRedisStore(client, prefix), func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return session.NewRedisStore(client, prefix), func() { _ = client.Close() }, nil
}

// forEachOp runs ops calls of fn spread over concurrency workers and
// collects per-call latency.
func forEachOp(ops, concurrency int, fn func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg       sync.WaitGroup
		cursor   int64
		failures int64
		rec      = newRecorder(ops)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				rec.add(time.Since(t0))
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()

	return computeStats(time.Since(start), rec.samples(), failures)
}

func runIssuePhase(ctx context.Context, store session.Store, n, concurrency int) ([]slot, phaseStats, error) {
	slots := make([]slot, n)
	var (
		errOnce  sync.Once
		firstErr error
	)

	fmt.Printf("seeding %d sessions...\n", n)
	stats := forEachOp(n, concurrency, func(_ *rand.Rand, i int) error {
		s, err := store.Issue(ctx, fmt.Sprintf("user-%d", i%1000), sessionTTL)
		if err != nil {
			errOnce.Do(func() { firstErr = err })
			return err
		}
		slots[i].token = s.Token
		return nil
	})

	if firstErr != nil {
		return nil, stats, firstErr
	}
	return slots, stats, nil
}

func runValidatePhase(ctx context.Context, store session.Store, slots []slot, ops, concurrency int) phaseStats {
	return forEachOp(ops, concurrency, func(r *rand.Rand, _ int) error {
		s := &slots[r.Intn(len(slots))]
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()

		_, err := store.Validate(ctx, token)
		return err
	})
}

func runRotatePhase(ctx context.Context, store session.Store, slots []slot, ops, concurrency int) phaseStats {
	return forEachOp(ops, concurrency, func(r *rand.Rand, _ int) error {
		s := &slots[r.Intn(len(slots))]
		s.mu.Lock()
		defer s.mu.Unlock()

		next, err := store.Rotate(ctx, s.token, sessionTTL)
		if err != nil {
			return err
		}
		s.token = next.Token
		return nil
	})
}

// runContentionPhase races contenders goroutines on one token per round and
// counts rounds that did not produce exactly one winner.
func runContentionPhase(ctx context.Context, store session.Store, rounds, contenders int) (int, error) {
	violations := 0
	for round := 0; round < rounds; round++ {
		s, err := store.Issue(ctx, "contended-user", sessionTTL)
		if err != nil {
			return violations, err
		}

		var (
			wg      sync.WaitGroup
			winners int64
			start   = make(chan struct{})
			errs    = make(chan error, contenders)
		)
		for c := 0; c < contenders; c++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := store.Rotate(ctx, s.Token, sessionTTL)
				switch {
				case err == nil:
					atomic.AddInt64(&winners, 1)
				case !errors.Is(err, session.ErrInvalid):
					errs <- err
				}
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		if err, ok := <-errs; ok {
			return violations, err
		}
		if winners != 1 {
			violations++
		}
	}
	return violations, nil
}
