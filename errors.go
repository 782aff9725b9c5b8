package tokenauth

import "errors"

var (
	// ErrInvalidRequest reports input the engine refuses before touching a store.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAccountExists is returned by Register for an e-mail already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials covers both an unknown e-mail and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned once the login failure budget is spent.
	ErrLoginRateLimited = errors.New("too many login attempts")
	// ErrUserNotFound is returned by Profile for an unknown user id.
	ErrUserNotFound = errors.New("user not found")

	ErrTokenMissing  = errors.New("no token")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenTampered = errors.New("token tampered")
	ErrTokenInvalid  = errors.New("invalid token")

	ErrRefreshInvalid = errors.New("invalid refresh token")
	ErrRefreshExpired = errors.New("refresh token expired")

	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind groups engine errors by how a transport should answer them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindNotFound
	KindRateLimited
)

// String returns the lower-case name of k.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// KindOf classifies err. Anything not produced by the engine's own
// sentinels, including nil, is KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidRequest):
		return KindValidation
	case errors.Is(err, ErrAccountExists):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenMissing),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenTampered),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrRefreshExpired):
		return KindUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrLoginRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}
