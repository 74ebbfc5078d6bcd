package authcore

import (
	"context"
	"time"
)

// ExtendSession pushes the session expiry forward by the configured
// extension window, measured from now. An expired session cannot be
// resurrected: it fails with [ErrSessionExpired] exactly like validation
// would.
func (e *Engine) ExtendSession(ctx context.Context, sessionID string) (*Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	sess, err := e.store.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !now.Before(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	newExpiry := now.Add(e.config.Session.ExtensionWindow)
	if err := e.store.UpdateSessionExpiry(ctx, sess.ID, newExpiry); err != nil {
		return nil, err
	}
	sess.ExpiresAt = newExpiry

	e.metrics.Inc(MetricSessionExtended)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditSessionExtended,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Success:   true,
	})

	return sess, nil
}

// TimeUntilExpiry returns the session's remaining lifetime computed from
// server time. Clients use this for expiry warnings; they must never trust
// a locally cached remainder.
func (e *Engine) TimeUntilExpiry(ctx context.Context, sessionID string) (time.Duration, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}

	sess, err := e.store.FindSessionByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	remaining := sess.TimeUntilExpiry(time.Now())
	if remaining == 0 {
		return 0, ErrSessionExpired
	}
	return remaining, nil
}
