// Package password owns every operation that touches a plaintext password: hashing,
// verification, strength scoring, generation and entropy estimation.
//
// # Output format
//
// The default algorithm is bcrypt, whose work factor is read from [Config.Cost] on every
// call so operators can tune it without a rebuild. Inputs longer than bcrypt's 72-byte
// limit are reduced to a keyed HMAC-SHA256 digest first, and the stored hash is tagged
// "$bcrypt-sha256$" so the digest is never accepted as a password. Argon2id is available as an
// alternate algorithm and is encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.Verify] dispatches on the stored prefix, so a store may hold both kinds.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other trackauth package.
//   - Log plaintext passwords or hashes.
//   - Let a verification fault cross its boundary as anything other than false.
package password
