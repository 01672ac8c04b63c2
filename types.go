package authgate

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/arkalon/authgate/internal/audit"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus uint8

const (
	// AccountActive is the normal state; the account may log in.
	AccountActive AccountStatus = iota
	// AccountDisabled marks an account switched off by an operator.
	AccountDisabled
	// AccountLocked marks an account frozen for security reasons.
	AccountLocked
)

// Account is the durable identity record. Username, Phone, and Email are
// optional unique handles; PasswordHash is empty for passwordless accounts
// (first-login-is-registration via SMS, or federated-only identities).
type Account struct {
	ID           string
	Username     string
	Phone        string
	Email        string
	PasswordHash string
	Nickname     string
	AvatarURL    string
	Status       AccountStatus
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// Summary returns the caller-facing projection of the account, with no
// credential material.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:        a.ID,
		Username:  a.Username,
		Phone:     a.Phone,
		Email:     a.Email,
		Nickname:  a.Nickname,
		AvatarURL: a.AvatarURL,
	}
}

// AccountSummary is the public projection of an [Account] returned inside
// login results.
type AccountSummary struct {
	ID        string
	Username  string
	Phone     string
	Email     string
	Nickname  string
	AvatarURL string
}

// RefreshSession is one long-lived login session. TokenHash is the SHA-256
// hex digest of the signed refresh token; the raw token is never persisted.
type RefreshSession struct {
	ID         string
	AccountID  string
	TokenHash  string
	IP         string
	UserAgent  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time
}

// Login channels recorded in [LoginEvent]. Federated logins use the provider
// name as the channel.
const (
	ChannelPassword = "password"
	ChannelSMS      = "sms"
)

// LoginEvent is an append-only audit record of one login attempt. AccountID
// is empty when the presented identity resolved to no account. Events are
// written best-effort after the authoritative outcome and are never mutated
// by this core.
type LoginEvent struct {
	AccountID     string
	Channel       string
	IP            string
	UserAgent     string
	Success       bool
	FailureReason string
	At            time.Time
}

// ExternalProfile is the identity snapshot asserted by an upstream federation
// collaborator. Trust in the (provider, subject) assertion is delegated
// entirely to that collaborator.
type ExternalProfile struct {
	Username  string
	Nickname  string
	Email     string
	AvatarURL string
	Raw       map[string]any
}

// ExternalIdentityBinding maps a federated (provider, subject) pair to exactly
// one local account, forever. Profile and AccessToken are cached from the most
// recent federated login.
type ExternalIdentityBinding struct {
	ID          string
	AccountID   string
	Provider    string
	Subject     string
	Username    string
	AccessToken string
	Profile     map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LoginResult is returned by the login operations. ExpiresIn is the refresh
// session lifetime in seconds.
type LoginResult struct {
	Account      AccountSummary
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// RefreshResult is returned by [Engine.RefreshAccess]. Only the access token
// is re-minted; the refresh token stays valid until its own expiry or
// explicit revocation.
type RefreshResult struct {
	AccessToken string
	TokenType   string
}

// AuthResult holds the claims of a validated, unrevoked access token.
type AuthResult struct {
	AccountID string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// AccountStore is the durable repository contract the host application must
// implement. Lookups return [ErrNotFound] (possibly wrapped) when no record
// matches; writes return [ErrDuplicate] on uniqueness-constraint violations.
// Any other error is treated as a retryable infrastructure failure and is
// never converted into an authentication outcome. All methods must honor ctx
// cancellation.
type AccountStore interface {
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
	UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error

	CreateRefreshSession(ctx context.Context, session *RefreshSession) error
	GetRefreshSession(ctx context.Context, sessionID string) (*RefreshSession, error)
	TouchRefreshSession(ctx context.Context, sessionID string, usedAt time.Time) error
	DeleteRefreshSession(ctx context.Context, sessionID string) error
	DeleteAccountRefreshSessions(ctx context.Context, accountID, exceptSessionID string) error
	DeleteExpiredRefreshSessions(ctx context.Context, accountID string, before time.Time) error
	ListRefreshSessions(ctx context.Context, accountID string) ([]RefreshSession, error)

	AppendLoginEvent(ctx context.Context, event *LoginEvent) error

	GetBinding(ctx context.Context, provider, subject string) (*ExternalIdentityBinding, error)
	CreateBinding(ctx context.Context, binding *ExternalIdentityBinding) error
	UpdateBinding(ctx context.Context, binding *ExternalIdentityBinding) error
}

// CodeSender hands a one-time login code to the delivery collaborator (an SMS
// gateway). Provider selection happens at construction time in the host
// application; the engine sees one capability. A returned error propagates as
// [ErrDeliveryFailed] and does not consume send quota.
type CodeSender interface {
	SendLoginCode(ctx context.Context, phone, code string) error
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
