// Package session manages the single "current session identifier" stored on an
// account record.
//
// A session id is a server-held nonce. Issuing a new one invalidates every token
// carrying the old one, because the request gate and the refresh flow only honour
// tokens whose embedded id matches the stored id.
//
// # Architecture boundaries
//
// This package owns id generation, rotation, clearing and comparison. It does NOT
// interpret tokens or enforce authentication policy; those belong to the Engine.
//
// # What this package must NOT do
//
//   - Import trackauth or jwt (no upward imports).
//   - Accept a session id from client input that was not embedded in a verified token.
package session
