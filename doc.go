// Package trackauth manages credentials and sessions for the application
// tracker: password login, JWT access and refresh tokens, session rotation,
// password reset and email verification.
//
// Each account holds at most one current session id. Login, refresh, password
// reset and password change replace it; logout clears it. Every token embeds
// the session id it was issued under, and [Engine.Authenticate] and
// [Engine.Refresh] reject tokens whose id is no longer current, so revocation
// takes effect before tokens expire.
//
// # Architecture boundaries
//
// The root package is the public surface: [Engine], [Builder], [Config] and the
// error sentinels. Hashing lives in password, token signing in jwt, persistence
// behind the store.Accounts port, and outbound email behind notify.Sink. The
// Engine is the only place that translates their failures into this package's
// errors.
//
// # What this package must NOT do
//
//   - Log passwords, hashes, tokens or secrets.
//   - Return a password hash from any method.
//   - Start with a default signing secret.
package trackauth
