package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const (
	// refreshTokenSize gives refresh tokens 256 bits of entropy.
	refreshTokenSize = 32
	resetTokenSize   = 32
)

// NewRefreshToken returns a random base64url (no padding) refresh token.
func NewRefreshToken() (string, error) {
	return randomToken(refreshTokenSize)
}

// NewResetToken returns a random base64url (no padding) password reset token.
func NewResetToken() (string, error) {
	return randomToken(resetTokenSize)
}

// HashToken returns the SHA-256 digest under which a bearer token is stored.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// TokenKey returns the hex form of HashToken, used in storage keys.
func TokenKey(token string) string {
	sum := HashToken(token)
	return hex.EncodeToString(sum[:])
}

func randomToken(size int) (string, error) {
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
