package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/caselane/authcore/token"
)

// Register creates a new account. It fails with [ErrDuplicateEmail] when
// the email already has an account and [ErrWeakPassword] when the password
// fails the strength policy. The returned Account never carries the
// password hash.
//
// When a notifier is configured, a verification token is issued and its
// link delivered best-effort; a delivery failure does not fail
// registration.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, in.Email)
	}

	if err := e.checkPasswordStrength(in.Password); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         e.config.Account.DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The store claims the email atomically; a concurrent registration
	// for the same address loses with ErrDuplicateEmail.
	if err := e.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metrics.Inc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditEvent{
				EventType: AuditRegister,
				Success:   false,
				Error:     errMessage(ErrDuplicateEmail),
			})
		}
		return nil, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditRegister,
		UserID:    user.ID,
		Success:   true,
	})

	if e.notifier != nil {
		if err := e.issueVerificationToken(ctx, user); err != nil {
			log.Printf("authcore: issue verification token for %s failed: %v", user.ID, err)
		}
	}

	account := sanitizeUser(user)
	return &account, nil
}

// IsEmailAvailable reports whether no account exists for the email. Pure
// lookup, no side effects.
func (e *Engine) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}

	_, err := e.store.FindUserByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, ErrUserNotFound):
		return true, nil
	case err != nil:
		return false, err
	default:
		return false, nil
	}
}

// ValidatePasswordStrength applies the configured strength policy. Pure
// predicate, safe to call repeatedly (e.g. from a signup form handler).
func (e *Engine) ValidatePasswordStrength(pw string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return e.checkPasswordStrength(pw)
}

// UnlockAccount clears the failed-attempt counter and the lockout
// timestamp in one update. It fails with [ErrUserNotFound] for an unknown
// id and returns the updated account.
func (e *Engine) UnlockAccount(ctx context.Context, userID string) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FailedLogins = 0
	user.LockedUntil = time.Time{}
	user.UpdatedAt = time.Now()

	if err := e.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricAccountUnlocked)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditAccountUnlocked,
		UserID:    user.ID,
		Success:   true,
	})

	account := sanitizeUser(user)
	return &account, nil
}

// NewAPIKey issues a namespaced API key for service integrations. The
// plaintext is returned once; persisting its hash is the caller's concern.
func (e *Engine) NewAPIKey(prefix string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return token.NewAPIKey(prefix)
}
