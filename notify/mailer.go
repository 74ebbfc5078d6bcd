package notify

import (
	"context"
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig carries the outbound mail settings. An empty Host marks the
// mailer unconfigured; it then logs and skips instead of failing callers.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address. Falls back to Username when empty.
	From string
}

func (c SMTPConfig) configured() bool {
	return c.Host != "" && c.Port > 0
}

// Mailer delivers engine notifications over SMTP. It implements
// [authcore.Notifier].
type Mailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewMailer builds a Mailer. A nil logger falls back to slog.Default.
func NewMailer(cfg SMTPConfig, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mailer{cfg: cfg, logger: logger}
	if cfg.configured() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	} else {
		logger.Warn("smtp not configured, outbound email disabled")
	}
	return m
}

// SendEmail delivers one plain-text message. An unconfigured mailer logs
// the skip and reports success; the engine treats delivery as best-effort
// either way.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.dialer == nil {
		m.logger.Warn("email skipped, smtp not configured", "to", to, "subject", subject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

// NoOp discards every message. For embedding the engine without email.
type NoOp struct{}

func (NoOp) SendEmail(context.Context, string, string, string) error { return nil }
