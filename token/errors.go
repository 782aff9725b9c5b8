package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// codecError keeps a short message of its own while still matching the
// equivalent golang-jwt sentinel through errors.Is.
type codecError struct {
	msg   string
	cause error
}

func (e *codecError) Error() string { return e.msg }

func (e *codecError) Unwrap() error { return e.cause }

var (
	// ErrMalformed is returned when a token does not have exactly three
	// segments or a segment cannot be decoded.
	ErrMalformed error = &codecError{msg: "token malformed", cause: jwt.ErrTokenMalformed}
	// ErrSignatureInvalid is returned when the signature segment does not
	// match the HMAC of the header and payload.
	ErrSignatureInvalid error = &codecError{msg: "invalid signature", cause: jwt.ErrTokenSignatureInvalid}
	// ErrExpired is returned when the embedded exp lies in the past.
	ErrExpired error = &codecError{msg: "token expired", cause: jwt.ErrTokenExpired}
	// ErrEmptySecret is returned by NewCodec for a zero-length secret.
	ErrEmptySecret = errors.New("token secret must not be empty")
)
