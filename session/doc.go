// Package session stores refresh sessions and implements atomic refresh-token
// rotation.
//
// # Storage model
//
// A refresh token is an opaque 256-bit bearer capability. Stores never keep
// the token itself: records are keyed by its SHA-256 digest, and a per-user
// index tracks which digests belong to which account. A record is either
// active or absent. Rotation and revocation delete the record outright, so a
// replayed token looks exactly like one that was never issued.
//
// Expiry is lazy. There is no sweeper; an expired record is deleted by the
// first operation that finds it.
//
// # Implementations
//
//   - [MemoryStore]: process-local maps behind one mutex.
//   - [RedisStore]: one Lua script per operation, so each operation is a
//     single atomic step on the Redis server.
//
// # What this package must NOT do
//
//   - Import the root package, token, or credential.
//   - Split validate-and-replace across two round-trips or two critical sections.
//   - Store plaintext refresh tokens.
package session
