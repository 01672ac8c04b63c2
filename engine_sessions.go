package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arkalon/authgate/internal"
	"github.com/arkalon/authgate/jwt"
)

// RefreshAccess exchanges a live refresh token for a fresh access token. The
// refresh token itself is not rotated; it stays valid until its own expiry
// or the session's revocation.
//
// The token must still match a stored session row: right account, right
// token hash, not past expiry. Any mismatch reads as ErrSessionNotFound so a
// stolen-then-revoked token is indistinguishable from one that never
// existed.
func (e *Engine) RefreshAccess(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		e.emitAudit(clientIPFromContext(ctx), auditRefreshRejected, "", "", "", ErrTokenInvalid)
		return nil, ErrTokenInvalid
	}

	session, err := e.store.GetRefreshSession(ctx, claims.SessionID)
	if errors.Is(err, ErrNotFound) {
		e.emitAudit(clientIPFromContext(ctx), auditRefreshRejected, claims.Subject, claims.SessionID, "", ErrSessionNotFound)
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh session: %w", err)
	}

	if session.AccountID != claims.Subject || session.TokenHash != internal.HashToken(refreshToken) {
		e.emitAudit(clientIPFromContext(ctx), auditRefreshRejected, claims.Subject, session.ID, "", ErrSessionNotFound)
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	if now.After(session.ExpiresAt) {
		if err := e.store.DeleteRefreshSession(ctx, session.ID); err != nil {
			log.Print("authgate: failed to delete expired refresh session: ", err)
		}
		return nil, ErrTokenExpired
	}

	account, err := e.store.GetAccountByID(ctx, session.AccountID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if err := checkStatus(account); err != nil {
		return nil, err
	}

	accessToken, err := e.jwtManager.CreateAccess(account.ID, account.Username, uuid.NewString())
	if err != nil {
		return nil, err
	}

	if err := e.store.TouchRefreshSession(ctx, session.ID, now); err != nil {
		log.Print("authgate: failed to touch refresh session: ", err)
	}

	e.emitAudit(clientIPFromContext(ctx), auditRefreshSuccess, account.ID, session.ID, "", nil)
	return &RefreshResult{
		AccessToken: accessToken,
		TokenType:   tokenType,
	}, nil
}

// Logout revokes the presented access token for its remaining lifetime. An
// already expired token is a no-op success. The refresh session, if any, is
// untouched; revoke it separately with [Engine.RevokeSession].
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil
		}
		return ErrTokenInvalid
	}

	if err := e.RevokeAccessToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return err
	}
	e.emitAudit(clientIPFromContext(ctx), auditLogout, claims.Subject, "", "", nil)
	return nil
}

// RevokeAccessToken puts a token ID on the blacklist for the given remaining
// lifetime. A non-positive duration is a no-op.
func (e *Engine) RevokeAccessToken(ctx context.Context, tokenID string, remaining time.Duration) error {
	if err := e.blacklist.Revoke(ctx, tokenID, remaining); err != nil {
		return err
	}
	if remaining > 0 {
		e.emitAudit(clientIPFromContext(ctx), auditTokenRevoked, "", "", "", nil)
	}
	return nil
}

// IsAccessTokenRevoked reports whether a token ID is on the blacklist.
func (e *Engine) IsAccessTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return e.blacklist.IsRevoked(ctx, tokenID)
}

// ListSessions returns the account's refresh sessions, expired rows
// included; lazy pruning happens at issuance, not here.
func (e *Engine) ListSessions(ctx context.Context, accountID string) ([]RefreshSession, error) {
	sessions, err := e.store.ListRefreshSessions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession deletes one refresh session. The session must belong to the
// account; a foreign or unknown session ID reads as ErrSessionNotFound.
func (e *Engine) RevokeSession(ctx context.Context, accountID, sessionID string) error {
	session, err := e.store.GetRefreshSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load refresh session: %w", err)
	}
	if session.AccountID != accountID {
		return ErrSessionNotFound
	}

	if err := e.store.DeleteRefreshSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete refresh session: %w", err)
	}
	e.emitAudit(clientIPFromContext(ctx), auditSessionRevoked, accountID, sessionID, "", nil)
	return nil
}

// RevokeAllSessions deletes every refresh session of the account except, when
// non-empty, the one identified by exceptSessionID ("log out everywhere
// else").
func (e *Engine) RevokeAllSessions(ctx context.Context, accountID, exceptSessionID string) error {
	if err := e.store.DeleteAccountRefreshSessions(ctx, accountID, exceptSessionID); err != nil {
		return fmt.Errorf("failed to delete refresh sessions: %w", err)
	}
	e.emitAudit(clientIPFromContext(ctx), auditSessionsRevoked, accountID, "", "", nil)
	return nil
}
