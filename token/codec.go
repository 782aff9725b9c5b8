package token

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// ClaimUserID is the claim carrying the subject's user id.
	ClaimUserID = "userId"
	// ClaimExpiry is the claim carrying the expiry in milliseconds since epoch.
	ClaimExpiry = "exp"

	algorithm = "HS256"
)

var encodedHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Claims is the decoded payload of an access token.
type Claims map[string]any

// UserID returns the userId claim, or "" when absent or not a string.
func (c Claims) UserID() string {
	uid, _ := c[ClaimUserID].(string)
	return uid
}

// ExpiresAt returns the exp claim as a time.
func (c Claims) ExpiresAt() (time.Time, bool) {
	ms, ok := c[ClaimExpiry].(int64)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the wall clock used for exp stamping and checking.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// Codec signs and verifies tokens with a single shared secret.
//
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec creates a Codec for secret. The secret is copied.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
		parser: jwt.NewParser(jwt.WithStrictDecoding()),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Sign encodes claims with exp set to now+ttl and returns the compact token.
// A "exp" entry already present in claims is overwritten.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	payload := make(map[string]any, len(claims)+1)
	for k, v := range claims {
		payload[k] = v
	}
	payload[ClaimExpiry] = c.now().Add(ttl).UnixMilli()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}

	signingString := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(body)
	sig, err := c.signature(signingString)
	if err != nil {
		return "", err
	}

	return signingString + "." + sig, nil
}

// Verify checks the token's structure, signature and expiry, in that order,
// and returns its claims.
func (c *Codec) Verify(tok string) (Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return nil, ErrMalformed
	}

	expected, err := c.signature(parts[0] + "." + parts[1])
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[2])) != 1 {
		return nil, ErrSignatureInvalid
	}

	if err := c.checkHeader(parts[0]); err != nil {
		return nil, err
	}

	claims, err := c.decodeClaims(parts[1])
	if err != nil {
		return nil, err
	}

	if raw, ok := claims[ClaimExpiry]; ok {
		exp, ok := raw.(int64)
		if !ok {
			return nil, ErrMalformed
		}
		if exp < c.now().UnixMilli() {
			return nil, ErrExpired
		}
	}

	return claims, nil
}

func (c *Codec) signature(signingString string) (string, error) {
	raw, err := jwt.SigningMethodHS256.Sign(signingString, c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (c *Codec) checkHeader(segment string) error {
	raw, err := c.parser.DecodeSegment(segment)
	if err != nil {
		return ErrMalformed
	}

	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(raw, &header); err != nil || header.Alg != algorithm {
		return ErrMalformed
	}

	return nil
}

func (c *Codec) decodeClaims(segment string) (Claims, error) {
	raw, err := c.parser.DecodeSegment(segment)
	if err != nil {
		return nil, ErrMalformed
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var claims Claims
	if err := dec.Decode(&claims); err != nil || claims == nil {
		return nil, ErrMalformed
	}

	for k, v := range claims {
		if k == ClaimExpiry {
			exp, err := expiryValue(v)
			if err != nil {
				return nil, err
			}
			claims[k] = exp
			continue
		}
		if claims[k], err = normalizeNumbers(v); err != nil {
			return nil, err
		}
	}

	return claims, nil
}

// expiryValue accepts exp as any integral JSON number.
func expiryValue(v any) (any, error) {
	n, ok := v.(json.Number)
	if !ok {
		return v, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return nil, ErrMalformed
	}
	return int64(f), nil
}

// normalizeNumbers turns json.Number values at any depth into int64 when
// integral and float64 otherwise.
func normalizeNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, ErrMalformed
		}
		return f, nil
	case map[string]any:
		for k, elem := range t {
			n, err := normalizeNumbers(elem)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case []any:
		for i, elem := range t {
			n, err := normalizeNumbers(elem)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	default:
		return v, nil
	}
}

// Sign signs claims with secret using the wall clock.
func Sign(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	c, err := NewCodec(secret)
	if err != nil {
		return "", err
	}
	return c.Sign(claims, ttl)
}

// Verify verifies tok with secret using the wall clock.
func Verify(tok string, secret []byte) (Claims, error) {
	c, err := NewCodec(secret)
	if err != nil {
		return nil, err
	}
	return c.Verify(tok)
}
