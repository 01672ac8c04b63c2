package authgate

import (
	"errors"
	"time"
)

// Audit event types emitted by the engine.
const (
	auditLoginSuccess     = "login_success"
	auditLoginFailure     = "login_failure"
	auditLoginRateLimited = "login_rate_limited"
	auditCodeRequested    = "code_requested"
	auditCodeDelivery     = "code_delivery_failed"
	auditQuotaExceeded    = "code_quota_exceeded"
	auditRefreshSuccess   = "refresh_success"
	auditRefreshRejected  = "refresh_rejected"
	auditTokenRevoked     = "token_revoked"
	auditSessionRevoked   = "session_revoked"
	auditSessionsRevoked  = "sessions_revoked_all"
	auditBindingCreated   = "binding_created"
	auditBindingRefreshed = "binding_refreshed"
	auditLogout           = "logout"
)

// auditErrorCode maps engine sentinels to stable snake_case codes for sinks.
func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidChallenge):
		return "invalid_challenge"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, ErrAccountUnavailable):
		return "account_unavailable"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrIdentityConflict):
		return "identity_conflict"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	default:
		return "internal_error"
	}
}

// emitAudit queues an audit event when the dispatcher is enabled. Callers
// pass a context only to extract the origin; emission itself never blocks on
// the caller's deadline.
func (e *Engine) emitAudit(ip, eventType, accountID, sessionID, channel string, err error) {
	if e.audit == nil {
		return
	}
	e.audit.emit(AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		Channel:   channel,
		IP:        ip,
		Success:   err == nil,
		Error:     auditErrorCode(err),
	})
}
