// Package limiters implements dispatch quotas that are distinct from the
// login failure throttle: they gate how often codes leave the system, not
// how often credentials may be tried.
package limiters
