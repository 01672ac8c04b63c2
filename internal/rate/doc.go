// Package rate implements the Redis-backed login failure throttle.
//
// Counters are keyed by identity and origin so a shared identity attacked
// from one address does not lock out logins from another. Windows are fixed
// and anchored at the first failure.
//
// # Architecture boundaries
//
// This package knows nothing about accounts, credentials, or tokens. It
// counts failures and answers whether the cap has been reached; the engine
// decides what a failure is and when to reset.
package rate
