package authcore

import (
	"errors"
	"net/http"

	"github.com/caselane/authcore/token"
)

var (
	// ErrDuplicateEmail reports a registration against an email that
	// already has an account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is deliberately vague about whether the email
	// or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked reports an active lockout. Disclosed explicitly
	// because the user can act on it (wait, or contact support).
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidEmail reports a registration with a malformed email
	// address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrAccountUnverified reports a login against an account that has
	// not completed email verification, when verification is required.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrUserNotFound reports a lookup by an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound reports an unknown or already-deleted session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired reports a session past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenNotFound is a store-level sentinel for a missing one-time
	// token record. The engine surfaces ErrTokenInvalidOrExpired instead.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenInvalidOrExpired covers unknown, consumed, and expired
	// one-time tokens without distinguishing them to the caller.
	ErrTokenInvalidOrExpired = errors.New("token invalid or expired")
	// ErrWeakPassword reports a password failing the strength policy.
	ErrWeakPassword = errors.New("password too weak")
	// ErrCleanupAlreadyRunning reports Start on a running cleanup job.
	ErrCleanupAlreadyRunning = errors.New("cleanup job already running")
	// ErrStoreUnavailable wraps transient credential store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady reports use of an engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// HTTPStatus maps an error returned by this package to an HTTP-style status
// hint. Transport adapters decide the final response; this is only the
// suggested mapping. Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, token.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountLocked), errors.Is(err, ErrAccountUnverified):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidEmail):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrCleanupAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, ErrTokenInvalidOrExpired):
		return http.StatusGone
	case errors.Is(err, ErrWeakPassword):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
