package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/arkalon/authgate/internal/rate"
)

// LoginWithPassword authenticates a username/password pair behind a
// single-use challenge and, on success, opens a new refresh session.
//
// Unknown usernames and wrong passwords both count a throttle failure and
// return ErrInvalidCredentials, so the response does not reveal whether the
// username exists. Infrastructure failures propagate as-is and never consume
// a throttle attempt.
func (e *Engine) LoginWithPassword(ctx context.Context, username, plainPassword, challengeID, challengeAnswer string) (*LoginResult, error) {
	ok, err := e.challenges.Verify(ctx, challengeID, challengeAnswer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidChallenge
	}

	if err := e.checkThrottle(ctx, username, ChannelPassword); err != nil {
		return nil, err
	}

	account, err := e.store.GetAccountByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		e.noteLoginFailure(ctx, username, "", ChannelPassword, "unknown account")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if account.PasswordHash == "" {
		e.noteLoginFailure(ctx, username, account.ID, ChannelPassword, "no password credential")
		return nil, ErrInvalidCredentials
	}

	match, err := e.passwordHash.Verify(account.PasswordHash, plainPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		e.noteLoginFailure(ctx, username, account.ID, ChannelPassword, "wrong password")
		return nil, ErrInvalidCredentials
	}

	if err := checkStatus(account); err != nil {
		e.recordLoginEvent(ctx, account.ID, ChannelPassword, false, "account unavailable")
		e.emitAudit(clientIPFromContext(ctx), auditLoginFailure, account.ID, "", ChannelPassword, err)
		return nil, err
	}

	e.maybeUpgradeHash(ctx, account, plainPassword)

	if err := e.throttle.Reset(ctx, username, clientIPFromContext(ctx)); err != nil {
		log.Print("authgate: failed to reset failure counter: ", err)
	}

	result, err := e.issuePair(ctx, account)
	if err != nil {
		return nil, err
	}

	e.touchLastLogin(ctx, account.ID)
	e.recordLoginEvent(ctx, account.ID, ChannelPassword, true, "")
	e.emitAudit(clientIPFromContext(ctx), auditLoginSuccess, account.ID, "", ChannelPassword, nil)
	return result, nil
}

// checkThrottle rejects the attempt when the (identity, origin) failure cap
// has been reached. Throttle storage failures propagate; an unreachable
// counter is treated as an outage, not an open gate.
func (e *Engine) checkThrottle(ctx context.Context, identity, channel string) error {
	err := e.throttle.Check(ctx, identity, clientIPFromContext(ctx))
	if errors.Is(err, rate.ErrTooManyFailures) {
		e.recordLoginEvent(ctx, "", channel, false, "rate limited")
		e.emitAudit(clientIPFromContext(ctx), auditLoginRateLimited, "", "", channel, ErrTooManyAttempts)
		return ErrTooManyAttempts
	}
	return err
}
