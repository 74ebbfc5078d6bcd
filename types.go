package authcore

import (
	"context"
	"time"
)

// User is the identity record as the credential store persists it. It
// includes the password hash and lockout fields and therefore never crosses
// the public API boundary; callers receive an [Account] instead.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
	Verified     bool

	// Lockout state. The account is locked iff LockedUntil is non-zero
	// and in the future.
	FailedLogins int
	LockedUntil  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the user is locked out at the given instant.
func (u *User) Locked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && now.Before(u.LockedUntil)
}

// SessionMetadata is the fixed set of client attributes captured at login.
type SessionMetadata struct {
	IP                string
	UserAgent         string
	DeviceFingerprint string
}

// Session is one authenticated login. A session is valid iff the current
// time is before ExpiresAt; validity is never cached, every check re-reads
// the stored expiry.
type Session struct {
	ID        string
	UserID    string
	Metadata  SessionMetadata
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TimeUntilExpiry returns the remaining lifetime at the given instant, or
// zero if the session is already expired.
func (s *Session) TimeUntilExpiry(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// TokenKind distinguishes the one-time token classes sharing the token
// store.
type TokenKind uint8

const (
	TokenKindReset TokenKind = iota + 1
	TokenKindVerification
	TokenKindCSRF
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindReset:
		return "reset"
	case TokenKindVerification:
		return "verification"
	case TokenKindCSRF:
		return "csrf"
	default:
		return "unknown"
	}
}

// Token is a persisted one-time secret. Only the hash is stored; the
// plaintext is returned exactly once at issuance and delivered out-of-band.
type Token struct {
	Hash      string
	Kind      TokenKind
	Subject   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Account is the sanitized view of a [User] returned to callers. It carries
// no password hash and no internal counters beyond the lockout timestamp,
// which is user-actionable.
type Account struct {
	ID          string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	Role        string
	Verified    bool
	LockedUntil time.Time
	CreatedAt   time.Time
}

// AuthSession is the result of a successful login or session validation:
// the session together with its owning account.
type AuthSession struct {
	Session Session
	Account Account
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// CredentialStore is the persistence boundary. Implementations return
// [ErrUserNotFound], [ErrSessionNotFound], and [ErrTokenNotFound] for
// missing records, and wrap transient failures in [ErrStoreUnavailable].
// Every method is a single keyed operation or an expiry-filtered scan; the
// engine holds no locks across calls.
type CredentialStore interface {
	CreateUser(ctx context.Context, user *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	CreateSession(ctx context.Context, session *Session) error
	FindSessionByID(ctx context.Context, id string) (*Session, error)
	UpdateSessionExpiry(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsForUser(ctx context.Context, userID string) (int, error)
	FindExpiredSessions(ctx context.Context, now time.Time, limit int) ([]string, error)
	DeleteSessions(ctx context.Context, ids []string) (int, error)

	CreateToken(ctx context.Context, tok *Token) error
	FindTokenByHash(ctx context.Context, hash string) (*Token, error)
	DeleteToken(ctx context.Context, hash string) error
	FindExpiredTokens(ctx context.Context, now time.Time, limit int) ([]string, error)
	DeleteTokens(ctx context.Context, hashes []string) (int, error)
}

// Notifier delivers outbound email. The engine treats delivery as
// fire-and-forget: a failure is logged, never returned to the caller.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}
