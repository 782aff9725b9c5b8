// Package password hashes and verifies account passwords.
//
// # Output format
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes use the standard modular crypt format ($2a$/$2b$).
// Both implement [Hasher], so stores depend on the interface only.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Input shape rules
// (e-mail format, minimum length shown to the client) are enforced by the
// HTTP layer; the byte-length floor here is a last line of defence.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other package of this module.
//   - Log plaintext passwords or hashes.
package password
