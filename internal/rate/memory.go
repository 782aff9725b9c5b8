package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepThreshold is the bucket count above which idle buckets are pruned.
const sweepThreshold = 4096

// MemoryLimiter keeps one token bucket per key. A bucket holds MaxAttempts
// tokens and refills completely over Window; each failure spends one.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	config  Config
	now     func() time.Time
}

var _ LoginLimiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns a MemoryLimiter. now may be nil.
func NewMemoryLimiter(cfg Config, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		buckets: make(map[string]*rate.Limiter),
		config:  cfg,
		now:     now,
	}
}

// CheckLogin reports ErrRateLimited when the identifier bucket, or the IP
// bucket when enabled, is empty.
func (l *MemoryLimiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if l.config.disabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, key := range l.keys(identifier, ip) {
		if b, ok := l.buckets[key]; ok && b.TokensAt(now) < 1 {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin takes one token from each bucket for a failed attempt.
func (l *MemoryLimiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	if l.config.disabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) > sweepThreshold {
		l.sweepLocked(now)
	}

	for _, key := range l.keys(identifier, ip) {
		b, ok := l.buckets[key]
		if !ok {
			b = rate.NewLimiter(rate.Every(l.config.Window/time.Duration(l.config.MaxAttempts)), l.config.MaxAttempts)
			// Anchor the bucket at the injected clock.
			b.SetLimitAt(now, b.Limit())
			l.buckets[key] = b
		}
		b.AllowN(now, 1)
	}
	return nil
}

// ResetLogin drops the identifier bucket. The IP bucket is kept.
func (l *MemoryLimiter) ResetLogin(ctx context.Context, identifier, _ string) error {
	if l.config.disabled() {
		return nil
	}

	l.mu.Lock()
	delete(l.buckets, "id:"+identifier)
	l.mu.Unlock()
	return nil
}

// sweepLocked drops buckets that have fully refilled.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	full := float64(l.config.MaxAttempts)
	for key, b := range l.buckets {
		if b.TokensAt(now) >= full {
			delete(l.buckets, key)
		}
	}
}

func (l *MemoryLimiter) keys(identifier, ip string) []string {
	keys := []string{"id:" + identifier}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, "ip:"+ip)
	}
	return keys
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
