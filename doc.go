// Package authgate provides the authentication and session-lifecycle core for
// multi-channel logins: username/password, SMS one-time codes, and federated
// (OAuth) identities. It issues JWT access tokens paired with long-lived refresh
// sessions, enforces Redis-backed abuse controls (login-failure throttling,
// verification-code quotas, human-verification challenges), and revokes access
// on logout or compromise through a token blacklist.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config], the
// collaborator contracts ([AccountStore], [CodeSender]), and value types.
// Transport (HTTP routing), persistence engines, and SMS provider internals are
// external collaborators: the durable store is injected behind [AccountStore],
// the ephemeral store is an injected Redis client, and code delivery is an
// injected [CodeSender].
//
// # What this package must NOT do
//
//   - Persist raw refresh tokens; only their one-way hashes reach the store.
//   - Reinterpret infrastructure failures (Redis or repository outages) as
//     authentication outcomes.
//   - Reveal through error messages whether an account exists.
package authgate
