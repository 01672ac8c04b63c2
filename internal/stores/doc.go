// Package stores holds the Redis-backed short-lived credential stores: the
// per-number SMS login code store and the revoked access token blacklist.
//
// # What this package must NOT do
//
// It never generates codes or tokens and never decides policy. Callers own
// code generation, TTL choice, and what a revocation means.
package stores
