// Package notify delivers the engine's outbound email: verification links
// and password reset tokens.
//
// [Mailer] speaks SMTP through gomail. When no SMTP host is configured it
// degrades to a logging no-op, so development setups run without a mail
// server while the engine's token flows stay exercisable.
package notify
