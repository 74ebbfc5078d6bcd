// Package authcore implements the authentication core of a legal-filing
// administration platform: secure token issuance, opaque server-side
// sessions, account lockout, one-time verification and reset tokens, and a
// recurring cleanup job for expired records.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build], and the [CleanupJob] runs concurrently with live
// request handling against the same credential store.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], [CleanupJob], and value types (Account, AuthSession,
// CleanupAnalytics, MetricsSnapshot). Persistence sits behind the
// [CredentialStore] interface; the Redis implementation lives in
// redisstore and any backend honoring the interface contract can replace
// it.
//
// # What this package must NOT do
//
//   - Cache session or token validity across calls. Every check re-reads
//     the store and the clock.
//   - Return password hashes or plaintext secrets from any Engine method,
//     except the one-time plaintext a token issuance hands back.
//   - Decide transport-level responses. [HTTPStatus] is a hint; adapters
//     own the boundary.
package authcore
