// Package middleware adapts the trackauth request gate to net/http.
//
//   - [Require] rejects the request with a JSON 401 unless the Authorization
//     header resolves to an account with a current session.
//   - [Optional] resolves the account when it can and otherwise lets the
//     request through anonymously.
//
// Both store the resolved account in the request context; read it back with
// [AccountFromContext].
//
// # What this package must NOT do
//
//   - Parse or verify tokens itself; every decision comes from the Engine.
//   - Leak the underlying error text to clients beyond the stable error code.
package middleware
