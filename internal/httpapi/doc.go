// Package httpapi exposes the trackauth Engine as a JSON REST surface on a
// chi router. It is the wiring used by `trackauth serve`.
package httpapi
