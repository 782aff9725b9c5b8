// Package token signs and verifies compact HS256 access tokens.
//
// # Wire format
//
// A token is three base64url (no padding) segments joined by ".":
//
//	<header>.<payload>.<signature>
//
// The header is always {"alg":"HS256","typ":"JWT"}. The payload is the caller's
// claims plus "exp", the absolute expiry in milliseconds since the Unix epoch.
// The signature is HMAC-SHA256 over "<header>.<payload>" with the shared secret.
// Any service holding the secret can verify a token without calling back.
//
// # Architecture boundaries
//
// This package is stateless: it never stores tokens and never resolves the
// subject of a token. Resolving "userId" to a live account is the Engine's job.
//
// # What this package must NOT do
//
//   - Import the root package, credential, or session.
//   - Accept a token whose signature does not match before looking at its payload.
//   - Compare signatures with a variable-time comparison.
package token
