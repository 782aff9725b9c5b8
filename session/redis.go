package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/tokenauth/internal"
	"github.com/redis/go-redis/v9"
)

const (
	statusNotFound  int64 = 0
	statusExpired   int64 = 1
	statusCollision int64 = 2
	statusOK        int64 = 3
)

// KEYS[1] token key, KEYS[2] user index.
// ARGV: uid, iat ms, exp ms, ttl ms, digest.
const issueScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "uid", ARGV[1], "iat", ARGV[2], "exp", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
redis.call("SADD", KEYS[2], ARGV[5])
if redis.call("PTTL", KEYS[2]) < tonumber(ARGV[4]) then
  redis.call("PEXPIRE", KEYS[2], ARGV[4])
end
return 1
`

// KEYS[1] token key.
// ARGV: now ms, user index prefix, digest.
const validateScript = `
local fields = redis.call("HMGET", KEYS[1], "uid", "iat", "exp")
if not fields[1] then
  return {0}
end
if tonumber(fields[3]) < tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", ARGV[2] .. fields[1], ARGV[3])
  return {1}
end
return {3, fields[1], fields[2], fields[3]}
`

// KEYS[1] old token key, KEYS[2] new token key.
// ARGV: now ms, user index prefix, old digest, new digest, new exp ms, ttl ms.
const rotateScript = `
local fields = redis.call("HMGET", KEYS[1], "uid", "exp")
if not fields[1] then
  return {0}
end
local uid = fields[1]
local userKey = ARGV[2] .. uid
if tonumber(fields[2]) < tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", userKey, ARGV[3])
  return {1}
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return {2}
end
redis.call("DEL", KEYS[1])
redis.call("SREM", userKey, ARGV[3])
redis.call("HSET", KEYS[2], "uid", uid, "iat", ARGV[1], "exp", ARGV[5])
redis.call("PEXPIRE", KEYS[2], ARGV[6])
redis.call("SADD", userKey, ARGV[4])
if redis.call("PTTL", userKey) < tonumber(ARGV[6]) then
  redis.call("PEXPIRE", userKey, ARGV[6])
end
return {3, uid}
`

// KEYS[1] token key.
// ARGV: user index prefix, digest.
const revokeScript = `
local uid = redis.call("HGET", KEYS[1], "uid")
if not uid then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. uid, ARGV[2])
return 1
`

// KEYS[1] user index.
// ARGV: token key prefix.
const revokeAllScript = `
local digests = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, d in ipairs(digests) do
  removed = removed + redis.call("DEL", ARGV[1] .. d)
end
redis.call("DEL", KEYS[1])
return removed
`

// KEYS[1] user index.
// ARGV: token key prefix, now ms.
const activeCountScript = `
local digests = redis.call("SMEMBERS", KEYS[1])
local active = 0
for _, d in ipairs(digests) do
  local exp = redis.call("HGET", ARGV[1] .. d, "exp")
  if not exp then
    redis.call("SREM", KEYS[1], d)
  elseif tonumber(exp) < tonumber(ARGV[2]) then
    redis.call("DEL", ARGV[1] .. d)
    redis.call("SREM", KEYS[1], d)
  else
    active = active + 1
  end
end
return active
`

var (
	issueLua       = redis.NewScript(issueScript)
	validateLua    = redis.NewScript(validateScript)
	rotateLua      = redis.NewScript(rotateScript)
	revokeLua      = redis.NewScript(revokeScript)
	revokeAllLua   = redis.NewScript(revokeAllScript)
	activeCountLua = redis.NewScript(activeCountScript)
)

// RedisStore is a Store backed by Redis. Every operation is one Lua script,
// so validate-and-replace cannot interleave with another client.
//
// Key layout under prefix p:
//
//	p:rt:<hex sha256(token)>  hash {uid, iat, exp}, PEXPIRE'd at exp
//	p:ru:<userID>             set of token digests
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	opts   options
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore using prefix as key namespace.
func NewRedisStore(client redis.UniversalClient, prefix string, opts ...Option) *RedisStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if prefix == "" {
		prefix = "ta"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		opts:   o,
	}
}

func (s *RedisStore) tokenPrefix() string { return s.prefix + ":rt:" }

func (s *RedisStore) userPrefix() string { return s.prefix + ":ru:" }

func (s *RedisStore) tokenKey(digest string) string { return s.tokenPrefix() + digest }

func (s *RedisStore) userKey(userID string) string { return s.userPrefix() + userID }

// Issue creates a session for userID that expires after ttl. The token is
// generated client-side and inserted only if its digest is unused.
func (s *RedisStore) Issue(ctx context.Context, userID string, ttl time.Duration) (Session, error) {
	if err := checkIssueArgs(userID, ttl); err != nil {
		return Session{}, err
	}

	now := s.opts.now()
	expiresAt := now.Add(ttl)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		token, err := s.opts.newToken()
		if err != nil {
			return Session{}, fmt.Errorf("session: generate token: %w", err)
		}
		digest := internal.TokenKey(token)

		created, err := issueLua.Run(
			ctx,
			s.redis,
			[]string{s.tokenKey(digest), s.userKey(userID)},
			userID,
			now.UnixMilli(),
			expiresAt.UnixMilli(),
			ttl.Milliseconds(),
			digest,
		).Int64()
		if err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if created == 0 {
			continue
		}

		return Session{
			Token:     token,
			UserID:    userID,
			CreatedAt: time.UnixMilli(now.UnixMilli()),
			ExpiresAt: time.UnixMilli(expiresAt.UnixMilli()),
		}, nil
	}

	return Session{}, ErrTokenCollision
}

// Validate returns the live session for token. An expired record is
// deleted and reported as ErrExpired.
func (s *RedisStore) Validate(ctx context.Context, token string) (Session, error) {
	digest := internal.TokenKey(token)

	parts, err := runTable(ctx, validateLua, s.redis,
		[]string{s.tokenKey(digest)},
		s.opts.now().UnixMilli(),
		s.userPrefix(),
		digest,
	)
	if err != nil {
		return Session{}, err
	}

	code, err := statusOf(parts)
	if err != nil {
		return Session{}, err
	}

	switch code {
	case statusNotFound:
		return Session{}, ErrInvalid
	case statusExpired:
		return Session{}, ErrExpired
	case statusOK:
		if len(parts) < 4 {
			return Session{}, fmt.Errorf("%w: short validate response", ErrBackendUnavailable)
		}
		uid, _ := parts[1].(string)
		iat, iatErr := parseMillis(parts[2])
		exp, expErr := parseMillis(parts[3])
		if uid == "" || iatErr != nil || expErr != nil {
			return Session{}, fmt.Errorf("%w: corrupt session record", ErrBackendUnavailable)
		}
		return Session{
			Token:     token,
			UserID:    uid,
			CreatedAt: iat,
			ExpiresAt: exp,
		}, nil
	default:
		return Session{}, fmt.Errorf("%w: unknown validate status %d", ErrBackendUnavailable, code)
	}
}

// Rotate replaces oldToken with a new session for the same owner in one
// script. The old record is deleted only when the new one is written.
func (s *RedisStore) Rotate(ctx context.Context, oldToken string, ttl time.Duration) (Session, error) {
	if ttl <= 0 {
		return Session{}, errNonPositiveTTL
	}

	oldDigest := internal.TokenKey(oldToken)

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		newToken, err := s.opts.newToken()
		if err != nil {
			return Session{}, fmt.Errorf("session: generate token: %w", err)
		}
		newDigest := internal.TokenKey(newToken)

		now := s.opts.now()
		expiresAt := now.Add(ttl)

		parts, err := runTable(ctx, rotateLua, s.redis,
			[]string{s.tokenKey(oldDigest), s.tokenKey(newDigest)},
			now.UnixMilli(),
			s.userPrefix(),
			oldDigest,
			newDigest,
			expiresAt.UnixMilli(),
			ttl.Milliseconds(),
		)
		if err != nil {
			return Session{}, err
		}

		code, err := statusOf(parts)
		if err != nil {
			return Session{}, err
		}

		switch code {
		case statusNotFound:
			return Session{}, ErrInvalid
		case statusExpired:
			return Session{}, ErrExpired
		case statusCollision:
			continue
		case statusOK:
			uid, _ := parts[1].(string)
			if uid == "" {
				return Session{}, fmt.Errorf("%w: corrupt session record", ErrBackendUnavailable)
			}
			return Session{
				Token:     newToken,
				UserID:    uid,
				CreatedAt: time.UnixMilli(now.UnixMilli()),
				ExpiresAt: time.UnixMilli(expiresAt.UnixMilli()),
			}, nil
		default:
			return Session{}, fmt.Errorf("%w: unknown rotate status %d", ErrBackendUnavailable, code)
		}
	}

	return Session{}, ErrTokenCollision
}

// Revoke deletes token and its index entry. Unknown tokens are not an
// error.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	digest := internal.TokenKey(token)
	if err := revokeLua.Run(ctx, s.redis, []string{s.tokenKey(digest)}, s.userPrefix(), digest).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// RevokeAll deletes every session indexed for userID and returns how many
// records existed.
func (s *RedisStore) RevokeAll(ctx context.Context, userID string) (int, error) {
	n, err := revokeAllLua.Run(ctx, s.redis, []string{s.userKey(userID)}, s.tokenPrefix()).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n, nil
}

// ActiveCount returns the number of unexpired sessions of userID, pruning
// stale index entries.
func (s *RedisStore) ActiveCount(ctx context.Context, userID string) (int, error) {
	n, err := activeCountLua.Run(ctx, s.redis, []string{s.userKey(userID)},
		s.tokenPrefix(),
		s.opts.now().UnixMilli(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n, nil
}

func runTable(ctx context.Context, script *redis.Script, client redis.Scripter, keys []string, args ...interface{}) ([]interface{}, error) {
	result, err := script.Run(ctx, client, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid script response", ErrBackendUnavailable)
	}
	return parts, nil
}

func statusOf(parts []interface{}) (int64, error) {
	code, ok := parts[0].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: invalid script status", ErrBackendUnavailable)
	}
	return code, nil
}

func parseMillis(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, errors.New("not a string")
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
