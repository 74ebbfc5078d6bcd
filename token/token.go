// Package token generates and verifies the random secrets used across the
// platform: session identifiers, API keys, email-verification and
// password-reset tokens, CSRF tokens, and numeric one-time codes.
//
// All randomness comes from crypto/rand. Base64url output is unpadded, so
// the emitted character set is exactly [A-Za-z0-9_-].
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrInvalidParameter reports a generator input outside its accepted range.
var ErrInvalidParameter = errors.New("invalid token parameter")

const (
	// MinBytes and MaxBytes bound Generate. Below 16 bytes the token is
	// too guessable to protect anything; above 256 it no longer fits the
	// places tokens travel (URLs, headers, email links).
	MinBytes = 16
	MaxBytes = 256

	sessionTokenBytes      = 32
	apiKeyBytes            = 48
	verificationTokenBytes = 24
	csrfTokenBytes         = 32
	resetTokenBytes        = 32

	// Reset links older than a week are stale by any policy.
	maxResetTTLMinutes = 7 * 24 * 60

	minOTPDigits = 4
	maxOTPDigits = 10
)

// Generate returns a base64url-encoded token backed by byteSize bytes of
// CSPRNG output. byteSize outside [MinBytes, MaxBytes] fails with
// ErrInvalidParameter.
func Generate(byteSize int) (string, error) {
	if byteSize < MinBytes || byteSize > MaxBytes {
		return "", fmt.Errorf("%w: byte size %d outside [%d, %d]", ErrInvalidParameter, byteSize, MinBytes, MaxBytes)
	}

	raw := make([]byte, byteSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewSessionToken returns a session identifier with 32 bytes of entropy.
func NewSessionToken() (string, error) {
	return Generate(sessionTokenBytes)
}

// NewAPIKey returns an API key of the form "<prefix>_<token>" with 48 bytes
// of entropy. The prefix namespaces keys per consumer and must be non-empty
// base64url-safe text.
func NewAPIKey(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty api key prefix", ErrInvalidParameter)
	}
	for i := 0; i < len(prefix); i++ {
		if !isURLSafe(prefix[i]) {
			return "", fmt.Errorf("%w: api key prefix contains %q", ErrInvalidParameter, prefix[i])
		}
	}

	t, err := Generate(apiKeyBytes)
	if err != nil {
		return "", err
	}
	return prefix + "_" + t, nil
}

// NewVerificationToken returns an email-verification token with 24 bytes of
// entropy.
func NewVerificationToken() (string, error) {
	return Generate(verificationTokenBytes)
}

// NewCSRFToken returns a CSRF token with 32 bytes of entropy.
func NewCSRFToken() (string, error) {
	return Generate(csrfTokenBytes)
}

// NewResetToken returns a password-reset token with 32 bytes of entropy and
// the absolute expiry computed from ttlMinutes. ttlMinutes must be positive
// and at most seven days.
func NewResetToken(ttlMinutes int) (string, time.Time, error) {
	if ttlMinutes <= 0 || ttlMinutes > maxResetTTLMinutes {
		return "", time.Time{}, fmt.Errorf("%w: reset ttl %d minutes outside (0, %d]", ErrInvalidParameter, ttlMinutes, maxResetTTLMinutes)
	}

	t, err := Generate(resetTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}

	return t, time.Now().Add(time.Duration(ttlMinutes) * time.Minute), nil
}

// NewOTP returns a numeric one-time code of exactly length digits,
// zero-padded, drawn uniformly from [0, 10^length). length outside [4, 10]
// fails with ErrInvalidParameter.
func NewOTP(length int) (string, error) {
	if length < minOTPDigits || length > maxOTPDigits {
		return "", fmt.Errorf("%w: otp length %d outside [%d, %d]", ErrInvalidParameter, length, minOTPDigits, maxOTPDigits)
	}

	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("read random int: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}

func isURLSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-':
		return true
	default:
		return false
	}
}
