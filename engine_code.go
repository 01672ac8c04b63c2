package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/arkalon/authgate/internal"
	"github.com/arkalon/authgate/internal/limiters"
)

// RequestCode generates a one-time login code and hands it to the delivery
// collaborator, behind a single-use challenge and per-number send quotas.
//
// Quota is consumed only after the collaborator accepts the dispatch, so a
// delivery failure does not burn the cooldown or the daily budget. The code
// itself is never returned to the caller.
func (e *Engine) RequestCode(ctx context.Context, phone, challengeID, challengeAnswer string) error {
	if e.sender == nil {
		return ErrEngineNotReady
	}

	ok, err := e.challenges.Verify(ctx, challengeID, challengeAnswer)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidChallenge
	}

	if err := e.smsQuota.CheckSend(ctx, phone); err != nil {
		if errors.Is(err, limiters.ErrSendCooldown) || errors.Is(err, limiters.ErrDailyCapReached) {
			e.emitAudit(clientIPFromContext(ctx), auditQuotaExceeded, "", "", ChannelSMS, ErrQuotaExceeded)
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return err
	}

	code, err := internal.NewNumericCode(e.config.SMSCode.Digits)
	if err != nil {
		return err
	}

	if err := e.sender.SendLoginCode(ctx, phone, code); err != nil {
		e.emitAudit(clientIPFromContext(ctx), auditCodeDelivery, "", "", ChannelSMS, ErrDeliveryFailed)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if err := e.codes.Save(ctx, phone, code); err != nil {
		return err
	}
	if err := e.smsQuota.MarkSent(ctx, phone); err != nil {
		log.Print("authgate: failed to mark sms quota: ", err)
	}

	e.emitAudit(clientIPFromContext(ctx), auditCodeRequested, "", "", ChannelSMS, nil)
	return nil
}

// LoginWithCode authenticates a phone number with a previously dispatched
// one-time code. A first successful code login provisions a fresh account
// for the number, so registration and login are the same operation.
//
// The stored code survives wrong guesses and expires on its own TTL; only a
// successful match consumes it.
func (e *Engine) LoginWithCode(ctx context.Context, phone, code string) (*LoginResult, error) {
	if err := e.checkThrottle(ctx, phone, ChannelSMS); err != nil {
		return nil, err
	}

	match, err := e.codes.Consume(ctx, phone, code)
	if err != nil {
		return nil, err
	}
	if !match {
		e.noteLoginFailure(ctx, phone, "", ChannelSMS, "wrong or expired code")
		return nil, ErrInvalidCredentials
	}

	account, err := e.store.GetAccountByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		account, err = e.provisionPhoneAccount(ctx, phone)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := checkStatus(account); err != nil {
		e.recordLoginEvent(ctx, account.ID, ChannelSMS, false, "account unavailable")
		e.emitAudit(clientIPFromContext(ctx), auditLoginFailure, account.ID, "", ChannelSMS, err)
		return nil, err
	}

	if err := e.throttle.Reset(ctx, phone, clientIPFromContext(ctx)); err != nil {
		log.Print("authgate: failed to reset failure counter: ", err)
	}

	result, err := e.issuePair(ctx, account)
	if err != nil {
		return nil, err
	}

	e.touchLastLogin(ctx, account.ID)
	e.recordLoginEvent(ctx, account.ID, ChannelSMS, true, "")
	e.emitAudit(clientIPFromContext(ctx), auditLoginSuccess, account.ID, "", ChannelSMS, nil)
	return result, nil
}

// provisionPhoneAccount creates a passwordless account for a number seen for
// the first time. A concurrent provision losing the uniqueness race falls
// back to the winner's row.
func (e *Engine) provisionPhoneAccount(ctx context.Context, phone string) (*Account, error) {
	nickname := "user" + phone
	if len(phone) >= 4 {
		nickname = "user" + phone[len(phone)-4:]
	}

	account := &Account{
		ID:       uuid.NewString(),
		Phone:    phone,
		Nickname: nickname,
		Status:   AccountActive,
	}

	err := e.store.CreateAccount(ctx, account)
	if errors.Is(err, ErrDuplicate) {
		return e.store.GetAccountByPhone(ctx, phone)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
