// Package challenge issues and verifies single-use human-verification
// challenges. Answers are stored lowercased in Redis under a short TTL and
// consumed on the first verification attempt, right or wrong.
//
// # What this package must NOT do
//
// It does not decide when a challenge is required. Throttle thresholds and
// login policy live in the engine.
package challenge
