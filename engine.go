package authcore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caselane/authcore/password"
)

// Engine orchestrates registration, login, session lifecycle, lockout, and
// one-time token flows. Construct it through [New]; the zero value is not
// usable.
//
// The engine keeps no per-request state and takes no locks across store
// calls. The credential store is the only shared mutable resource; every
// validity decision re-reads it.
type Engine struct {
	config   Config
	store    CredentialStore
	notifier Notifier
	hasher   *password.Hasher
	audit    *auditDispatcher
	metrics  *Metrics
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Config returns a copy of the engine's effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// MetricsSnapshot exposes the counter state to metric exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.audit.Emit(ctx, event)
}

// sendEmail delivers best-effort: a failing notifier is logged and never
// fails the operation that triggered it.
func (e *Engine) sendEmail(ctx context.Context, to, subject, body string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendEmail(ctx, to, subject, body); err != nil {
		log.Printf("authcore: send email to %s failed: %v", to, err)
	}
}

func (e *Engine) passwordPolicy() password.Policy {
	return password.Policy{MinLength: e.config.Password.MinLength}
}

// checkPasswordStrength maps the policy verdict onto the public sentinel.
func (e *Engine) checkPasswordStrength(pw string) error {
	if err := password.ValidateStrength(pw, e.passwordPolicy()); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(u *User) Account {
	return Account{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		Verified:    u.Verified,
		LockedUntil: u.LockedUntil,
		CreatedAt:   u.CreatedAt,
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
