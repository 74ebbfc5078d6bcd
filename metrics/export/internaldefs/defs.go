package internaldefs

import (
	"github.com/caselane/authcore"
)

// CounterDef binds a metric id to its exported name and help text.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram-backed metric id to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter catalog. Both exporters render exactly
// this list, in this order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Accounts locked by the failed-login threshold."},
	{ID: authcore.MetricAccountUnlocked, Name: "authcore_account_unlocked_total", Help: "Administrative account unlocks."},
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Successful registrations."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected as duplicate email."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: authcore.MetricSessionExtended, Name: "authcore_session_extended_total", Help: "Session expiry extensions."},
	{ID: authcore.MetricSessionInvalidated, Name: "authcore_session_invalidated_total", Help: "Sessions invalidated by password rotation."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: authcore.MetricValidateSuccess, Name: "authcore_validate_success_total", Help: "Successful session validations."},
	{ID: authcore.MetricValidateExpired, Name: "authcore_validate_expired_total", Help: "Validations against expired sessions."},
	{ID: authcore.MetricValidateMiss, Name: "authcore_validate_miss_total", Help: "Validations against unknown sessions."},
	{ID: authcore.MetricPasswordResetRequest, Name: "authcore_password_reset_request_total", Help: "Password reset requests."},
	{ID: authcore.MetricPasswordResetSuccess, Name: "authcore_password_reset_success_total", Help: "Completed password resets."},
	{ID: authcore.MetricPasswordResetFailure, Name: "authcore_password_reset_failure_total", Help: "Rejected password reset attempts."},
	{ID: authcore.MetricPasswordChanged, Name: "authcore_password_changed_total", Help: "Password changes by logged-in users."},
	{ID: authcore.MetricVerificationIssued, Name: "authcore_verification_issued_total", Help: "Issued email verification tokens."},
	{ID: authcore.MetricVerificationSuccess, Name: "authcore_verification_success_total", Help: "Completed email verifications."},
	{ID: authcore.MetricVerificationFailure, Name: "authcore_verification_failure_total", Help: "Rejected email verification attempts."},
	{ID: authcore.MetricCleanupSessionsRemoved, Name: "authcore_cleanup_sessions_removed_total", Help: "Expired sessions removed by the cleanup job."},
	{ID: authcore.MetricCleanupTokensRemoved, Name: "authcore_cleanup_tokens_removed_total", Help: "Expired tokens removed by the cleanup job."},
	{ID: authcore.MetricCleanupCycleErrors, Name: "authcore_cleanup_cycle_errors_total", Help: "Cleanup cycles that finished with a sweep error."},
}

// HistogramDefs lists the histogram-backed metrics.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "Session validation latency."},
}

// HistogramBounds are the upper bucket bounds, in seconds, as Prometheus
// renders them.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is the OTel-safe spelling of each bound, used to
// derive per-bucket instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms use.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
