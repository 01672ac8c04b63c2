// Package jwt mints and validates the engine's two token families: stateless
// access tokens and session-bound refresh tokens, each signed with its own
// secret.
//
// Validation failures collapse to two sentinels, ErrExpired and ErrInvalid,
// so callers can branch with errors.Is without importing the underlying JWT
// library.
//
// # Architecture boundaries
//
// This package never touches storage. Whether a token ID has been revoked or
// a session row still exists is the caller's problem.
package jwt
