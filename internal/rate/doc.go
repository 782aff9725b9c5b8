// Package rate throttles failed login attempts per identifier and, optionally,
// per client IP.
//
// # Implementations
//
//   - [RedisLimiter]: fixed-window counters (INCR plus EXPIRE on first hit),
//     shared by every process pointing at the same Redis.
//   - [MemoryLimiter]: per-key token buckets from golang.org/x/time/rate,
//     local to the process.
//
// Both count failures only. Once MaxAttempts failures accumulate, Check
// returns [ErrRateLimited] until the window has passed or the key is reset.
//
// # Keys
//
// Identifiers are hashed before they become keys, so Redis never sees an
// email address. Redis key layout under prefix p:
//
//	p:rl:id:<hex sha256(identifier)>
//	p:rl:ip:<ip>
package rate
