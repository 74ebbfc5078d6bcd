package authcore

import (
	"errors"
	"time"
)

// Config carries every tunable of the subsystem. Zero values are filled by
// DefaultConfig; Validate rejects combinations that would weaken the
// security posture. Config is copied at Build time and immutable afterward.
type Config struct {
	Session           SessionConfig
	Lockout           LockoutConfig
	Password          PasswordConfig
	PasswordReset     PasswordResetConfig
	EmailVerification EmailVerificationConfig
	Cleanup           CleanupConfig
	Account           AccountConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and extension.
type SessionConfig struct {
	// Lifetime is the validity window granted at login.
	Lifetime time.Duration
	// ExtensionWindow is how far ExtendSession pushes the expiry forward
	// from the moment of extension.
	ExtensionWindow time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the failed-login lockout policy. Threshold and
// Duration are operator-tunable; there are no hardcoded fallbacks beyond
// the defaults installed by DefaultConfig.
type LockoutConfig struct {
	// Threshold is the number of consecutive failures that locks the
	// account.
	Threshold int
	// Duration is how long a lock holds before it lapses on its own.
	Duration time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the argon2id cost parameters (Memory in KiB) and
// the strength policy minimum length.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength int
	// UpgradeOnLogin re-hashes a stored password after a successful login
	// when the stored hash predates the current cost parameters.
	UpgradeOnLogin bool
}

/*
====================================
TOKEN CONFIGS
====================================
*/

// PasswordResetConfig controls reset token issuance.
type PasswordResetConfig struct {
	// TTLMinutes is the reset token lifetime in minutes. Bounded by the
	// token package (at most seven days).
	TTLMinutes int
}

// EmailVerificationConfig controls verification token issuance.
type EmailVerificationConfig struct {
	// Required gates login on a verified email address when true. When
	// false, verification tokens are still issued and honored but login
	// does not check the flag.
	Required bool
	TTL      time.Duration
}

/*
====================================
CLEANUP CONFIG
====================================
*/

// CleanupConfig controls the background expired-record sweeps.
type CleanupConfig struct {
	Interval time.Duration
	// BatchSize caps how many expired records one sweep requests from the
	// store. Each batch is deleted and committed independently.
	BatchSize int
}

/*
====================================
ACCOUNT / AMBIENT CONFIGS
====================================
*/

// AccountConfig controls registration defaults.
type AccountConfig struct {
	DefaultRole string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking request goroutines when
	// the buffer is saturated. Drops are counted.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when the caller does not
// override a section.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Lifetime:        24 * time.Hour,
			ExtensionWindow: 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   10,
		},
		PasswordReset: PasswordResetConfig{
			TTLMinutes: 60,
		},
		EmailVerification: EmailVerificationConfig{
			Required: false,
			TTL:      48 * time.Hour,
		},
		Cleanup: CleanupConfig{
			Interval:  5 * time.Minute,
			BatchSize: 500,
		},
		Account: AccountConfig{
			DefaultRole: "customer",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Session.Lifetime <= 0 {
		return errors.New("Session.Lifetime must be positive")
	}
	if c.Session.ExtensionWindow <= 0 {
		return errors.New("Session.ExtensionWindow must be positive")
	}

	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout.Threshold must be positive")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout.Duration must be positive")
	}

	if c.Password.MinLength < 8 {
		return errors.New("Password.MinLength must be at least 8")
	}

	if c.PasswordReset.TTLMinutes <= 0 {
		return errors.New("PasswordReset.TTLMinutes must be positive")
	}
	if c.PasswordReset.TTLMinutes > 7*24*60 {
		return errors.New("PasswordReset.TTLMinutes must not exceed seven days")
	}

	if c.EmailVerification.TTL <= 0 {
		return errors.New("EmailVerification.TTL must be positive")
	}

	if c.Cleanup.Interval < time.Second {
		return errors.New("Cleanup.Interval must be at least one second")
	}
	if c.Cleanup.BatchSize <= 0 {
		return errors.New("Cleanup.BatchSize must be positive")
	}

	if c.Account.DefaultRole == "" {
		return errors.New("Account.DefaultRole must be set")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}

	return nil
}

func cloneConfig(c Config) Config {
	// All sections are value types; a struct copy is a deep copy.
	return c
}
