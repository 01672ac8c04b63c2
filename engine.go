package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arkalon/authgate/challenge"
	"github.com/arkalon/authgate/internal"
	"github.com/arkalon/authgate/internal/limiters"
	"github.com/arkalon/authgate/internal/rate"
	"github.com/arkalon/authgate/internal/stores"
	"github.com/arkalon/authgate/jwt"
	"github.com/arkalon/authgate/password"
)

// tokenType is the scheme clients present access tokens under.
const tokenType = "Bearer"

// Engine is the authentication core. Construct it with [New] and the Builder
// chain; the zero value is not usable. All methods are safe for concurrent
// use.
type Engine struct {
	config Config

	store  AccountStore
	sender CodeSender

	challenges *challenge.Manager
	codes      *stores.CodeStore
	blacklist  *stores.Blacklist
	throttle   *rate.Limiter
	smsQuota   *limiters.SMSQuota

	passwordHash *password.Argon2
	jwtManager   *jwt.Manager

	audit *auditDispatcher
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close returns.
func (e *Engine) Close() error {
	if e.audit != nil {
		e.audit.close()
	}
	return nil
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.droppedCount()
}

// Config returns a copy of the engine's effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// ValidateAccess checks an access token's signature, expiry, and revocation
// status, and returns the authenticated claims. It never touches the durable
// store; a deleted account keeps a valid token until it expires or is
// revoked.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	revoked, err := e.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return &AuthResult{
		AccountID: claims.Subject,
		Username:  claims.Handle,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// LoginFailures returns the current failure count for an identity from the
// caller's origin. Callers compare it against Config.Throttle.
// ChallengeThreshold to decide when to demand a challenge up front.
func (e *Engine) LoginFailures(ctx context.Context, identity string) (int, error) {
	return e.throttle.Failures(ctx, identity, clientIPFromContext(ctx))
}

// issuePair mints a fresh access/refresh pair for the account, persists the
// refresh session, and optionally prunes the account's expired sessions.
func (e *Engine) issuePair(ctx context.Context, account *Account) (*LoginResult, error) {
	now := time.Now()
	tokenID := uuid.NewString()
	sessionID := uuid.NewString()

	accessToken, err := e.jwtManager.CreateAccess(account.ID, account.Username, tokenID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := e.jwtManager.CreateRefresh(account.ID, sessionID)
	if err != nil {
		return nil, err
	}

	session := &RefreshSession{
		ID:         sessionID,
		AccountID:  account.ID,
		TokenHash:  internal.HashToken(refreshToken),
		IP:         clientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		IssuedAt:   now,
		ExpiresAt:  now.Add(e.config.JWT.RefreshTTL),
		LastUsedAt: now,
	}
	if err := e.store.CreateRefreshSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist refresh session: %w", err)
	}

	if e.config.Session.PruneOnIssue {
		if err := e.store.DeleteExpiredRefreshSessions(ctx, account.ID, now); err != nil {
			log.Print("authgate: failed to prune expired refresh sessions: ", err)
		}
	}

	return &LoginResult{
		Account:      account.Summary(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		ExpiresIn:    int64(e.config.JWT.RefreshTTL / time.Second),
	}, nil
}

// recordLoginEvent appends a login event to the durable store. Recording is
// best-effort and runs after the authoritative outcome; a store failure here
// is logged, never surfaced.
func (e *Engine) recordLoginEvent(ctx context.Context, accountID, channel string, success bool, failureReason string) {
	event := &LoginEvent{
		AccountID:     accountID,
		Channel:       channel,
		IP:            clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		Success:       success,
		FailureReason: failureReason,
		At:            time.Now(),
	}
	if err := e.store.AppendLoginEvent(ctx, event); err != nil {
		log.Print("authgate: failed to append login event: ", err)
	}
}

// noteLoginFailure advances the failure counter and records the failed
// attempt. Counter errors are logged; the caller's rejection stands either
// way.
func (e *Engine) noteLoginFailure(ctx context.Context, identity, accountID, channel, reason string) {
	if err := e.throttle.RecordFailure(ctx, identity, clientIPFromContext(ctx)); err != nil {
		log.Print("authgate: failed to record login failure: ", err)
	}
	e.recordLoginEvent(ctx, accountID, channel, false, reason)
	e.emitAudit(clientIPFromContext(ctx), auditLoginFailure, accountID, "", channel, ErrInvalidCredentials)
}

// touchLastLogin stamps LastLoginAt best-effort.
func (e *Engine) touchLastLogin(ctx context.Context, accountID string) {
	if err := e.store.UpdateLastLogin(ctx, accountID, time.Now()); err != nil {
		log.Print("authgate: failed to update last login: ", err)
	}
}

// maybeUpgradeHash re-hashes a verified password when the stored hash's
// parameters drifted below the current configuration.
func (e *Engine) maybeUpgradeHash(ctx context.Context, account *Account, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	if !e.passwordHash.NeedsRehash(account.PasswordHash) {
		return
	}

	rehashed, err := e.passwordHash.Hash(plain)
	if err != nil {
		log.Print("authgate: failed to upgrade password hash: ", err)
		return
	}
	if err := e.store.UpdatePasswordHash(ctx, account.ID, rehashed); err != nil {
		log.Print("authgate: failed to store upgraded password hash: ", err)
	}
}

// checkStatus maps non-active lifecycle states to ErrAccountUnavailable.
func checkStatus(account *Account) error {
	if account.Status != AccountActive {
		return ErrAccountUnavailable
	}
	return nil
}
