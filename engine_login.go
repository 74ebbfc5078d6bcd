package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caselane/authcore/token"
)

// Login authenticates the credentials and creates a session.
//
// Failures are deliberately coarse: an unknown email and a wrong password
// both return [ErrInvalidCredentials]. An active lockout returns
// [ErrAccountLocked] before the password is even checked. Each wrong
// password increments the user's failure counter; crossing the configured
// threshold sets the lockout as a side effect of that attempt, which still
// reports invalid credentials. A successful login resets the counter and
// clears a lapsed lock.
func (e *Engine) Login(ctx context.Context, email, pw string, meta SessionMetadata) (*AuthSession, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	user, err := e.store.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			IP:        meta.IP,
			Success:   false,
			Error:     errMessage(ErrInvalidCredentials),
		})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if user.Locked(now) {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			UserID:    user.ID,
			IP:        meta.IP,
			Success:   false,
			Error:     errMessage(ErrAccountLocked),
		})
		return nil, ErrAccountLocked
	}

	ok, err := e.hasher.Verify(pw, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, e.recordLoginFailure(ctx, user, meta, now)
	}

	if e.config.EmailVerification.Required && !user.Verified {
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditLoginFailure,
			UserID:    user.ID,
			IP:        meta.IP,
			Success:   false,
			Error:     errMessage(ErrAccountUnverified),
		})
		return nil, ErrAccountUnverified
	}

	if err := e.clearLoginFailures(ctx, user, now); err != nil {
		return nil, err
	}

	e.maybeUpgradeHash(ctx, user, pw, now)

	sessionID, err := token.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	sess := &Session{
		ID:        sessionID,
		UserID:    user.ID,
		Metadata:  meta,
		CreatedAt: now,
		ExpiresAt: now.Add(e.config.Session.Lifetime),
	}
	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricSessionCreated)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLoginSuccess,
		UserID:    user.ID,
		SessionID: sess.ID,
		IP:        meta.IP,
		Success:   true,
	})

	return &AuthSession{Session: *sess, Account: sanitizeUser(user)}, nil
}

// recordLoginFailure bumps the counter and installs the lock when the
// threshold is crossed. The caller always sees ErrInvalidCredentials for
// this attempt; the lock bites on the next one.
func (e *Engine) recordLoginFailure(ctx context.Context, user *User, meta SessionMetadata, now time.Time) error {
	user.FailedLogins++
	user.UpdatedAt = now

	lockedNow := user.FailedLogins >= e.config.Lockout.Threshold
	if lockedNow {
		user.LockedUntil = now.Add(e.config.Lockout.Duration)
	}

	if err := e.store.UpdateUser(ctx, user); err != nil {
		// The attempt still fails closed; only the counter update was
		// lost.
		log.Printf("authcore: record login failure for %s: %v", user.ID, err)
	}

	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLoginFailure,
		UserID:    user.ID,
		IP:        meta.IP,
		Success:   false,
		Error:     errMessage(ErrInvalidCredentials),
	})

	if lockedNow {
		e.metrics.Inc(MetricAccountLocked)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditAccountLocked,
			UserID:    user.ID,
			IP:        meta.IP,
			Success:   true,
			Metadata: map[string]string{
				"locked_until": user.LockedUntil.UTC().Format(time.RFC3339),
			},
		})
	}

	return ErrInvalidCredentials
}

// clearLoginFailures resets the counter and removes a lapsed lock. Skips
// the store write when there is nothing to clear.
func (e *Engine) clearLoginFailures(ctx context.Context, user *User, now time.Time) error {
	if user.FailedLogins == 0 && user.LockedUntil.IsZero() {
		return nil
	}

	user.FailedLogins = 0
	user.LockedUntil = time.Time{}
	user.UpdatedAt = now
	return e.store.UpdateUser(ctx, user)
}

// maybeUpgradeHash re-hashes the password under current cost parameters
// after a successful verification. Best effort.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *User, pw string, now time.Time) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}

	upgrade, err := e.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}

	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return
	}
	user.PasswordHash = hash
	user.UpdatedAt = now
	if err := e.store.UpdateUser(ctx, user); err != nil {
		log.Printf("authcore: upgrade password hash for %s: %v", user.ID, err)
	}
}

// Logout deletes the session. Idempotent: an unknown or already-expired
// session id is not an error.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	err := e.store.DeleteSession(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditLogout,
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// ValidateSession re-reads the session and its owner from the store and
// checks expiry against the current clock. Nothing is cached between
// calls, so a session deleted by the cleanup job is simply reported as
// [ErrSessionNotFound].
func (e *Engine) ValidateSession(ctx context.Context, sessionID string) (*AuthSession, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	start := time.Now()

	sess, err := e.store.FindSessionByID(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		e.metrics.Inc(MetricValidateMiss)
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !now.Before(sess.ExpiresAt) {
		e.metrics.Inc(MetricValidateExpired)
		return nil, ErrSessionExpired
	}

	user, err := e.store.FindUserByID(ctx, sess.UserID)
	if errors.Is(err, ErrUserNotFound) {
		// Orphaned session; treat it like a missing one.
		e.metrics.Inc(MetricValidateMiss)
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricValidateSuccess)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))

	return &AuthSession{Session: *sess, Account: sanitizeUser(user)}, nil
}
