package authgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/arkalon/authgate/internal"
)

func hashForTest(token string) string {
	return internal.HashToken(token)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// mockAccountStore is a map-backed AccountStore for engine tests.
type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	sessions map[string]*RefreshSession
	bindings map[string]*ExternalIdentityBinding
	events   []LoginEvent

	failLookups bool
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accounts: make(map[string]*Account),
		sessions: make(map[string]*RefreshSession),
		bindings: make(map[string]*ExternalIdentityBinding),
	}
}

var errStoreDown = errors.New("store down")

func (s *mockAccountStore) GetAccountByID(_ context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLookups {
		return nil, errStoreDown
	}
	if a, ok := s.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *mockAccountStore) GetAccountByUsername(_ context.Context, username string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLookups {
		return nil, errStoreDown
	}
	for _, a := range s.accounts {
		if a.Username == username && username != "" {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *mockAccountStore) GetAccountByPhone(_ context.Context, phone string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLookups {
		return nil, errStoreDown
	}
	for _, a := range s.accounts {
		if a.Phone == phone && phone != "" {
			copied := *a
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *mockAccountStore) CreateAccount(_ context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if (account.Username != "" && a.Username == account.Username) ||
			(account.Phone != "" && a.Phone == account.Phone) {
			return ErrDuplicate
		}
	}
	copied := *account
	s.accounts[account.ID] = &copied
	return nil
}

func (s *mockAccountStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}

func (s *mockAccountStore) UpdatePasswordHash(_ context.Context, accountID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (s *mockAccountStore) UpdateLastLogin(_ context.Context, accountID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.LastLoginAt = at
	return nil
}

func (s *mockAccountStore) CreateRefreshSession(_ context.Context, session *RefreshSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *mockAccountStore) GetRefreshSession(_ context.Context, sessionID string) (*RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		copied := *sess
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *mockAccountStore) TouchRefreshSession(_ context.Context, sessionID string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.LastUsedAt = usedAt
	return nil
}

func (s *mockAccountStore) DeleteRefreshSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *mockAccountStore) DeleteAccountRefreshSessions(_ context.Context, accountID, exceptSessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.AccountID == accountID && id != exceptSessionID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *mockAccountStore) DeleteExpiredRefreshSessions(_ context.Context, accountID string, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.AccountID == accountID && sess.ExpiresAt.Before(before) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *mockAccountStore) ListRefreshSessions(_ context.Context, accountID string) ([]RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RefreshSession
	for _, sess := range s.sessions {
		if sess.AccountID == accountID {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (s *mockAccountStore) AppendLoginEvent(_ context.Context, event *LoginEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *mockAccountStore) GetBinding(_ context.Context, provider, subject string) (*ExternalIdentityBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bindings[provider+"/"+subject]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *mockAccountStore) CreateBinding(_ context.Context, binding *ExternalIdentityBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := binding.Provider + "/" + binding.Subject
	if _, ok := s.bindings[key]; ok {
		return ErrDuplicate
	}
	copied := *binding
	s.bindings[key] = &copied
	return nil
}

func (s *mockAccountStore) UpdateBinding(_ context.Context, binding *ExternalIdentityBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := binding.Provider + "/" + binding.Subject
	if _, ok := s.bindings[key]; !ok {
		return ErrNotFound
	}
	copied := *binding
	s.bindings[key] = &copied
	return nil
}

func (s *mockAccountStore) lastEvent(t *testing.T) LoginEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		t.Fatal("expected at least one login event")
	}
	return s.events[len(s.events)-1]
}

// mockCodeSender captures dispatched codes.
type mockCodeSender struct {
	mu    sync.Mutex
	codes map[string]string
	calls int
	fail  bool
}

func newMockCodeSender() *mockCodeSender {
	return &mockCodeSender{codes: make(map[string]string)}
}

func (m *mockCodeSender) SendLoginCode(_ context.Context, phone, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return errors.New("gateway rejected")
	}
	m.codes[phone] = code
	return nil
}

func (m *mockCodeSender) lastCode(phone string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[phone]
}

func (m *mockCodeSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type testEngine struct {
	engine *Engine
	store  *mockAccountStore
	sender *mockCodeSender
	redis  *miniredis.Miniredis
}

func newTestEngine(t *testing.T, mutate func(*Config)) *testEngine {
	t.Helper()

	mr, client := newTestRedis(t)
	store := newMockAccountStore()
	sender := newMockCodeSender()

	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests")
	// Low-cost argon2 so the suite stays fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountStore(store).
		WithCodeSender(sender).
		Build()
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	return &testEngine{engine: engine, store: store, sender: sender, redis: mr}
}

// seedPasswordAccount creates an active account with a hashed password.
func (te *testEngine) seedPasswordAccount(t *testing.T, username, plain string) *Account {
	t.Helper()

	hash, err := te.engine.passwordHash.Hash(plain)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	account := &Account{
		ID:           "acct-" + username,
		Username:     username,
		PasswordHash: hash,
		Nickname:     username,
		Status:       AccountActive,
	}
	if err := te.store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

// issueChallengeAnswer issues a challenge and returns its ID and answer.
func (te *testEngine) issueChallengeAnswer(t *testing.T) (string, string) {
	t.Helper()

	ch, err := te.engine.IssueChallenge(context.Background())
	if err != nil {
		t.Fatalf("failed to issue challenge: %v", err)
	}
	return ch.ID, ch.Text
}
