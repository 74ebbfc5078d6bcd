package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caselane/authcore/token"
)

// RequestPasswordReset issues a reset token for the account behind the
// email and delivers it out-of-band. From the caller's perspective it
// always succeeds for a well-formed request: an unknown email is silently
// ignored so the endpoint cannot be used to enumerate accounts. Only
// transient store failures surface.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.store.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditResetRequested,
			Success:   false,
			Error:     "unknown email",
		})
		return nil
	}
	if err != nil {
		return err
	}

	plaintext, expiresAt, err := token.NewResetToken(e.config.PasswordReset.TTLMinutes)
	if err != nil {
		return err
	}

	rec := &Token{
		Hash:      token.Hash(plaintext),
		Kind:      TokenKindReset,
		Subject:   user.ID,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := e.store.CreateToken(ctx, rec); err != nil {
		return err
	}

	e.metrics.Inc(MetricPasswordResetRequest)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditResetRequested,
		UserID:    user.ID,
		Success:   true,
	})

	e.sendEmail(ctx, user.Email,
		"Reset your password",
		"Use this token to reset your password: "+plaintext)

	return nil
}

// ResetPassword consumes a reset token and installs the new password. The
// token is looked up before the strength check so a weak password does not
// burn it. On success every existing session of the user is invalidated;
// the user logs in again with the new password.
func (e *Engine) ResetPassword(ctx context.Context, plaintext, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	rec, err := e.lookupToken(ctx, plaintext, TokenKindReset)
	if err != nil {
		e.metrics.Inc(MetricPasswordResetFailure)
		return err
	}

	if err := e.checkPasswordStrength(newPassword); err != nil {
		return err
	}

	user, err := e.store.FindUserByID(ctx, rec.Subject)
	if errors.Is(err, ErrUserNotFound) {
		// Token outlived its account. Consume it and report it stale.
		_ = e.store.DeleteToken(ctx, rec.Hash)
		e.metrics.Inc(MetricPasswordResetFailure)
		return ErrTokenInvalidOrExpired
	}
	if err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user.PasswordHash = hash
	user.FailedLogins = 0
	user.LockedUntil = time.Time{}
	user.UpdatedAt = now
	if err := e.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	if err := e.store.DeleteToken(ctx, rec.Hash); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return err
	}

	invalidated, err := e.store.DeleteSessionsForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	e.metrics.Add(MetricSessionInvalidated, uint64(invalidated))

	e.metrics.Inc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditPasswordReset,
		UserID:    user.ID,
		Success:   true,
		Metadata: map[string]string{
			"sessions_invalidated": fmt.Sprintf("%d", invalidated),
		},
	})

	return nil
}

// ChangePassword rotates the password of a logged-in user after verifying
// the current one. Like a reset, it invalidates every existing session.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := e.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := e.checkPasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := e.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	invalidated, err := e.store.DeleteSessionsForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	e.metrics.Add(MetricSessionInvalidated, uint64(invalidated))

	e.metrics.Inc(MetricPasswordChanged)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditPasswordChanged,
		UserID:    user.ID,
		Success:   true,
	})

	return nil
}

// lookupToken resolves a plaintext one-time token to its stored record,
// checking kind and expiry. Unknown, mismatched, and expired tokens all
// come back as ErrTokenInvalidOrExpired; an expired record is consumed on
// the way out.
func (e *Engine) lookupToken(ctx context.Context, plaintext string, kind TokenKind) (*Token, error) {
	rec, err := e.store.FindTokenByHash(ctx, token.Hash(plaintext))
	if errors.Is(err, ErrTokenNotFound) {
		return nil, ErrTokenInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}

	if rec.Kind != kind {
		return nil, ErrTokenInvalidOrExpired
	}
	if !time.Now().Before(rec.ExpiresAt) {
		_ = e.store.DeleteToken(ctx, rec.Hash)
		return nil, ErrTokenInvalidOrExpired
	}

	return rec, nil
}
