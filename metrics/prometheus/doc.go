// Package prometheus exports trackauth engine counters through
// prometheus/client_golang.
//
// [Collector] reads an engine snapshot on every scrape; counters are named
// trackauth_<metric>_total and the gate latency histogram is
// trackauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry; callers own the registry.
//   - Mutate engine state.
package prometheus
