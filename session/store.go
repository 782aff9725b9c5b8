package session

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/internal"
)

var (
	// ErrInvalid is returned for a token the store does not hold.
	ErrInvalid = errors.New("invalid refresh token")
	// ErrExpired is returned for a token found past its expiry; the record
	// has been deleted by the time the caller sees this error.
	ErrExpired = errors.New("refresh token expired")
	// ErrTokenCollision is returned when every generated token collided with
	// an existing one.
	ErrTokenCollision = errors.New("refresh token collision retries exhausted")
	// ErrBackendUnavailable wraps storage backend failures.
	ErrBackendUnavailable = errors.New("session backend unavailable")
)

// maxIssueAttempts bounds collision retries. At 256 bits a single retry is
// already unreachable in practice.
const maxIssueAttempts = 4

// Session is an active refresh session.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is the refresh session contract shared by all backends.
//
// Rotate is atomic with respect to every other operation on the same token:
// of any number of concurrent Rotate calls presenting one token, exactly one
// succeeds and the rest observe ErrInvalid.
type Store interface {
	Issue(ctx context.Context, userID string, ttl time.Duration) (Session, error)
	Validate(ctx context.Context, token string) (Session, error)
	// Rotate validates oldToken, deletes it, and issues a replacement for the
	// same owner with a fresh ttl. The returned session's UserID is the owner.
	Rotate(ctx context.Context, oldToken string, ttl time.Duration) (Session, error)
	// Revoke deletes token if present. Unknown tokens are not an error.
	Revoke(ctx context.Context, token string) error
	// RevokeAll deletes every session of userID and reports how many went.
	RevokeAll(ctx context.Context, userID string) (int, error)
	// ActiveCount reports unexpired sessions of userID, evicting expired ones.
	ActiveCount(ctx context.Context, userID string) (int, error)
}

// TokenGenerator produces new refresh token strings.
type TokenGenerator func() (string, error)

type options struct {
	now      func() time.Time
	newToken TokenGenerator
}

func defaultOptions() options {
	return options{
		now:      time.Now,
		newToken: internal.NewRefreshToken,
	}
}

// Option configures a store.
type Option func(*options)

// WithClock replaces the clock used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.newToken = gen
		}
	}
}

var (
	errMissingUserID  = errors.New("session: user id required")
	errNonPositiveTTL = errors.New("session: ttl must be positive")
)

func checkIssueArgs(userID string, ttl time.Duration) error {
	if userID == "" {
		return errMissingUserID
	}
	if ttl <= 0 {
		return errNonPositiveTTL
	}
	return nil
}
