package authcore

import (
	"context"
	"sync"
	"time"
)

// mockCredentialStore is an in-memory CredentialStore for engine tests.
// Error fields inject failures per method; call counters let tests assert
// how often the engine hit the store.
type mockCredentialStore struct {
	mu       sync.Mutex
	users    map[string]*User
	byEmail  map[string]string
	sessions map[string]*Session
	tokens   map[string]*Token

	createUserErr       error
	findUserErr         error
	updateUserErr       error
	sessionErr          error
	tokenErr            error
	updateUserCalls     int
	expiredSessionScans int
}

func newMockStore() *mockCredentialStore {
	return &mockCredentialStore{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*Session),
		tokens:   make(map[string]*Token),
	}
}

func copyUser(u *User) *User {
	c := *u
	return &c
}

func copySession(s *Session) *Session {
	c := *s
	return &c
}

func copyToken(t *Token) *Token {
	c := *t
	return &c
}

func (m *mockCredentialStore) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createUserErr != nil {
		return m.createUserErr
	}
	if _, taken := m.byEmail[user.Email]; taken {
		return ErrDuplicateEmail
	}
	m.users[user.ID] = copyUser(user)
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockCredentialStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findUserErr != nil {
		return nil, m.findUserErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(m.users[id]), nil
}

func (m *mockCredentialStore) FindUserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findUserErr != nil {
		return nil, m.findUserErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (m *mockCredentialStore) UpdateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateUserCalls++
	if m.updateUserErr != nil {
		return m.updateUserErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *mockCredentialStore) CreateSession(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return m.sessionErr
	}
	m.sessions[sess.ID] = copySession(sess)
	return nil
}

func (m *mockCredentialStore) FindSessionByID(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

func (m *mockCredentialStore) UpdateSessionExpiry(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return m.sessionErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

func (m *mockCredentialStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return m.sessionErr
	}
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockCredentialStore) DeleteSessionsForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return 0, m.sessionErr
	}
	n := 0
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockCredentialStore) FindExpiredSessions(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiredSessionScans++
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	var ids []string
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			ids = append(ids, id)
			if limit > 0 && len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (m *mockCredentialStore) DeleteSessions(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionErr != nil {
		return 0, m.sessionErr
	}
	n := 0
	for _, id := range ids {
		if _, ok := m.sessions[id]; ok {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockCredentialStore) CreateToken(_ context.Context, tok *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return m.tokenErr
	}
	m.tokens[tok.Hash] = copyToken(tok)
	return nil
}

func (m *mockCredentialStore) FindTokenByHash(_ context.Context, hash string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	t, ok := m.tokens[hash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return copyToken(t), nil
}

func (m *mockCredentialStore) DeleteToken(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return m.tokenErr
	}
	if _, ok := m.tokens[hash]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, hash)
	return nil
}

func (m *mockCredentialStore) FindExpiredTokens(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	var hashes []string
	for hash, t := range m.tokens {
		if !now.Before(t.ExpiresAt) {
			hashes = append(hashes, hash)
			if limit > 0 && len(hashes) == limit {
				break
			}
		}
	}
	return hashes, nil
}

func (m *mockCredentialStore) DeleteTokens(_ context.Context, hashes []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenErr != nil {
		return 0, m.tokenErr
	}
	n := 0
	for _, hash := range hashes {
		if _, ok := m.tokens[hash]; ok {
			delete(m.tokens, hash)
			n++
		}
	}
	return n, nil
}

func (m *mockCredentialStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *mockCredentialStore) tokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

func (m *mockCredentialStore) expiredScanCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredSessionScans
}

// tokenOfKind returns one stored token of the given kind. Tests use it to
// reach records the engine only hands out as plaintext.
func (m *mockCredentialStore) tokenOfKind(kind TokenKind) *Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Kind == kind {
			return copyToken(t)
		}
	}
	return nil
}

// testConfig returns a config with cheap argon2id costs so engine tests
// stay fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, store CredentialStore, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine
}
