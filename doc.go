// Package tokenauth is an authentication engine built around short-lived
// signed access tokens and rotating opaque refresh tokens.
//
// An [Engine] is assembled with [Builder]:
//
//	engine, err := tokenauth.New().
//		WithSecret(secret).
//		WithRedis(client).
//		Build()
//
// Without WithRedis, refresh sessions and login throttle state live in
// process memory. User accounts live in the [credential.Store] given to
// [Builder.WithUserStore], or an in-memory store by default.
//
// # Tokens
//
// Access tokens carry the user id and an exp claim in milliseconds. They are
// verified statelessly apart from one user lookup. Refresh tokens are random
// opaque strings; the session store keeps only their SHA-256 digest and
// rotates them atomically, so two concurrent refreshes with the same token
// yield exactly one winner.
//
// # Errors
//
// Every Engine method returns one of the sentinels in errors.go or a wrapped
// internal failure. [KindOf] classifies an error for transport mapping.
//
// Engine methods are safe for concurrent use.
package tokenauth
