// Package redisstore is the Redis implementation of
// [authcore.CredentialStore].
//
// User records are JSON under a prefixed key, with a SETNX-claimed email
// index that makes registration the atomic arbiter of email uniqueness.
// Sessions and tokens are compact versioned binary blobs, each shadowed by
// a ZSET scored on Unix expiry so the cleanup job can scan expired records
// in bounded batches without touching the live keys.
//
// Keys get a TTL of logical expiry plus a grace window as a backstop; the
// ZSET sweep remains the authoritative remover because it is what produces
// the removal counts.
package redisstore
