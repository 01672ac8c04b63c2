package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// LoginWithExternalIdentity signs in a federated (provider, subject) pair
// that the host application has already verified with the upstream provider.
// The first login creates a local account seeded from the asserted profile
// and binds it to the pair permanently; later logins reuse the binding and
// refresh its cached profile snapshot.
//
// Federated logins bypass the failure throttle and never return
// ErrInvalidCredentials: trust in the assertion belongs to the collaborator
// that verified it.
func (e *Engine) LoginWithExternalIdentity(ctx context.Context, provider, subject string, profile ExternalProfile, providerToken string) (*LoginResult, error) {
	if provider == "" || subject == "" {
		return nil, ErrTokenInvalid
	}

	binding, err := e.store.GetBinding(ctx, provider, subject)
	switch {
	case err == nil:
		e.refreshBinding(ctx, binding, profile, providerToken)
	case errors.Is(err, ErrNotFound):
		binding, err = e.bindNewAccount(ctx, provider, subject, profile, providerToken)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load identity binding: %w", err)
	}

	account, err := e.store.GetAccountByID(ctx, binding.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := checkStatus(account); err != nil {
		e.recordLoginEvent(ctx, account.ID, provider, false, "account unavailable")
		e.emitAudit(clientIPFromContext(ctx), auditLoginFailure, account.ID, "", provider, err)
		return nil, err
	}

	result, err := e.issuePair(ctx, account)
	if err != nil {
		return nil, err
	}

	e.touchLastLogin(ctx, account.ID)
	e.recordLoginEvent(ctx, account.ID, provider, true, "")
	e.emitAudit(clientIPFromContext(ctx), auditLoginSuccess, account.ID, "", provider, nil)
	return result, nil
}

// refreshBinding updates the cached profile snapshot and provider token on an
// existing binding, best-effort.
func (e *Engine) refreshBinding(ctx context.Context, binding *ExternalIdentityBinding, profile ExternalProfile, providerToken string) {
	binding.Username = profile.Username
	binding.AccessToken = providerToken
	binding.Profile = profile.Raw
	binding.UpdatedAt = time.Now()

	if err := e.store.UpdateBinding(ctx, binding); err != nil {
		log.Print("authgate: failed to refresh identity binding: ", err)
		return
	}
	e.emitAudit(clientIPFromContext(ctx), auditBindingRefreshed, binding.AccountID, "", binding.Provider, nil)
}

// bindNewAccount provisions a local account for a first federated login and
// creates the binding. When a concurrent login wins the binding uniqueness
// race, the freshly created account is discarded and the winner's binding is
// used instead.
func (e *Engine) bindNewAccount(ctx context.Context, provider, subject string, profile ExternalProfile, providerToken string) (*ExternalIdentityBinding, error) {
	account := &Account{
		ID:        uuid.NewString(),
		Username:  profile.Username,
		Email:     profile.Email,
		Nickname:  profile.Nickname,
		AvatarURL: profile.AvatarURL,
		Status:    AccountActive,
	}
	if account.Nickname == "" {
		account.Nickname = profile.Username
	}

	err := e.store.CreateAccount(ctx, account)
	if errors.Is(err, ErrDuplicate) && account.Username != "" {
		// The asserted username clashes with an existing local account.
		// Retry once without a username handle rather than failing the login.
		account.ID = uuid.NewString()
		account.Username = ""
		err = e.store.CreateAccount(ctx, account)
	}
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrIdentityConflict, err)
		}
		return nil, fmt.Errorf("failed to provision account: %w", err)
	}

	now := time.Now()
	binding := &ExternalIdentityBinding{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Provider:    provider,
		Subject:     subject,
		Username:    profile.Username,
		AccessToken: providerToken,
		Profile:     profile.Raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.store.CreateBinding(ctx, binding)
	if errors.Is(err, ErrDuplicate) {
		// A concurrent first login bound the pair already. Drop the orphan
		// account and use the winner's binding.
		if delErr := e.store.DeleteAccount(ctx, account.ID); delErr != nil {
			log.Print("authgate: failed to delete orphan account: ", delErr)
		}
		return e.store.GetBinding(ctx, provider, subject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create identity binding: %w", err)
	}

	e.emitAudit(clientIPFromContext(ctx), auditBindingCreated, account.ID, "", provider, nil)
	return binding, nil
}
