// Package prometheus renders authcore metrics in Prometheus text
// exposition format.
//
// [NewExporter] accepts an [authcore.Engine] and exposes an http.Handler
// serving every counter and histogram. Counter names are prefixed
// authcore_*_total; the single histogram is
// authcore_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the
//     Handler where they want it.
//   - Mutate engine state.
package prometheus
