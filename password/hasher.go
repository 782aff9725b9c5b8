package password

import "errors"

const (
	// MinPasswordBytes is the shortest password any Hasher accepts.
	MinPasswordBytes = 8
	// DefaultMaxPasswordBytes caps input when a config leaves the limit unset.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooShort is returned by Hash for passwords under MinPasswordBytes.
	ErrPasswordTooShort = errors.New("password must be at least 8 bytes")
	// ErrPasswordTooLong is returned when the input exceeds the configured maximum.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned by Verify for a stored hash it cannot parse.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher turns plaintext passwords into self-describing encoded hashes and
// checks candidates against them. Implementations are safe for concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches encodedHash. A mismatch is
	// (false, nil); an error means encodedHash could not be interpreted.
	Verify(password, encodedHash string) (bool, error)
}
