// Package rate throttles failed logins with fixed-window Redis counters.
//
// Each window is an INCR plus an EXPIRE set on the first hit. Keys:
//   - <prefix>:login:<email>  failed attempts per account email
//   - <prefix>:login-ip:<ip>  failed attempts per client address (optional)
//
// The package knows nothing about accounts; callers pass a normalised email.
package rate
