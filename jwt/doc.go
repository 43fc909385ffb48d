// Package jwt issues and verifies the four token purposes used by trackauth:
// access, refresh, password-reset and email-verification.
//
// Every token is HS256-signed and scoped by a purpose claim and a per-purpose
// audience, so a token minted for one flow is never accepted by another.
// Verification failures collapse to exactly two errors, [ErrTokenExpired] and
// [ErrTokenInvalid]; signature-library errors never leave this package.
package jwt
