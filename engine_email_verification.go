package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/caselane/authcore/token"
)

// VerifyEmail consumes a verification token and marks its account
// verified. One-time use: a second call with the same token fails with
// [ErrTokenInvalidOrExpired].
func (e *Engine) VerifyEmail(ctx context.Context, plaintext string) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	rec, err := e.lookupToken(ctx, plaintext, TokenKindVerification)
	if err != nil {
		e.metrics.Inc(MetricVerificationFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditEmailVerified,
			Success:   false,
			Error:     errMessage(err),
		})
		return nil, err
	}

	user, err := e.store.FindUserByID(ctx, rec.Subject)
	if errors.Is(err, ErrUserNotFound) {
		_ = e.store.DeleteToken(ctx, rec.Hash)
		e.metrics.Inc(MetricVerificationFailure)
		return nil, ErrTokenInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}

	user.Verified = true
	user.UpdatedAt = time.Now()
	if err := e.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := e.store.DeleteToken(ctx, rec.Hash); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return nil, err
	}

	e.metrics.Inc(MetricVerificationSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditEmailVerified,
		UserID:    user.ID,
		Success:   true,
	})

	account := sanitizeUser(user)
	return &account, nil
}

// RequestEmailVerification re-issues a verification token for an
// unverified account. Unknown emails and already-verified accounts are
// silently ignored, mirroring the reset request's enumeration posture.
func (e *Engine) RequestEmailVerification(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	user, err := e.store.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Verified {
		return nil
	}

	return e.issueVerificationToken(ctx, user)
}

func (e *Engine) issueVerificationToken(ctx context.Context, user *User) error {
	plaintext, err := token.NewVerificationToken()
	if err != nil {
		return err
	}

	now := time.Now()
	rec := &Token{
		Hash:      token.Hash(plaintext),
		Kind:      TokenKindVerification,
		Subject:   user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.EmailVerification.TTL),
	}
	if err := e.store.CreateToken(ctx, rec); err != nil {
		return err
	}

	e.metrics.Inc(MetricVerificationIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditVerificationIssued,
		UserID:    user.ID,
		Success:   true,
	})

	e.sendEmail(ctx, user.Email,
		"Verify your email address",
		"Use this token to verify your email address: "+plaintext)

	return nil
}
