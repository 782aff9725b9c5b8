// Package credential owns user identity records and their password hashes.
//
// # Architecture boundaries
//
// [Store] is the only way to create or look up users. Password hashes never
// leave this package: [User] carries identity only, and callers authenticate
// by handing the plaintext candidate to [Store.Authenticate].
//
// # What this package must NOT do
//
//   - Distinguish "unknown e-mail" from "wrong password" in any return value.
//   - Know about tokens or refresh sessions.
//   - Log passwords or hashes.
package credential
