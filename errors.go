package authgate

import "errors"

var (
	// ErrInvalidChallenge is returned when a human-verification challenge is
	// missing, expired, already consumed, or answered incorrectly.
	ErrInvalidChallenge = errors.New("invalid challenge")
	// ErrInvalidCredentials is returned for both unknown accounts and wrong
	// passwords/codes. The message is deliberately identical for both causes
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts is returned when the failure counter for an
	// (identity, origin) pair has reached its cap and the window has not
	// yet elapsed.
	ErrTooManyAttempts = errors.New("too many failed attempts")
	// ErrAccountUnavailable is returned when the account exists but its
	// lifecycle status is disabled or locked.
	ErrAccountUnavailable = errors.New("account disabled or locked")
	// ErrDeliveryFailed is returned when the code delivery collaborator
	// rejects a dispatch. Send quota is not consumed in this case.
	ErrDeliveryFailed = errors.New("verification code delivery failed")
	// ErrQuotaExceeded is returned when a verification-code send is rejected
	// by the per-phone cooldown or the daily cap.
	ErrQuotaExceeded = errors.New("verification code quota exceeded")
	// ErrTokenRevoked is returned when an access token identifier is present
	// on the blacklist.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenExpired is returned when a token's claims are past expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned when a token fails signature or claim
	// validation for any reason other than expiry.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionNotFound is returned when a refresh session does not exist,
	// does not belong to the presenting account, or its stored token hash
	// does not match the presented token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrIdentityConflict is returned when a durable-store uniqueness
	// constraint rejects a write. The store's violation is the authoritative
	// conflict signal; courtesy existence checks are not assumed race-free.
	ErrIdentityConflict = errors.New("identity already bound")
	// ErrAccountNotFound is returned by account-scoped session operations
	// when the referenced account record is gone.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEngineNotReady is returned when a required collaborator was not
	// provided at build time.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrNotFound is the sentinel an [AccountStore] implementation must
	// return (possibly wrapped) when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is the sentinel an [AccountStore] implementation must
	// return (possibly wrapped) when a write violates a uniqueness
	// constraint, so the engine can distinguish conflicts from outages.
	ErrDuplicate = errors.New("unique constraint violation")
)
