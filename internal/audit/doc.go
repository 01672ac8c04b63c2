// Package audit defines the audit event model and the built-in sink
// implementations (no-op, buffered channel, JSON line writer). Dispatching,
// with its buffering, drop accounting, and shutdown draining, lives in the
// root package.
package audit
