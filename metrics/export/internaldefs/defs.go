package internaldefs

import (
	"github.com/MrEthical07/tokenauth"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricRegisterSuccess, Name: "tokenauth_register_success_total", Help: "Accounts created."},
	{ID: tokenauth.MetricRegisterDuplicate, Name: "tokenauth_register_duplicate_total", Help: "Registrations rejected for an existing e-mail."},
	{ID: tokenauth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Successful logins."},
	{ID: tokenauth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: tokenauth.MetricLoginRateLimited, Name: "tokenauth_login_rate_limited_total", Help: "Logins rejected by the login throttle."},
	{ID: tokenauth.MetricAccessAccepted, Name: "tokenauth_access_accepted_total", Help: "Access tokens accepted."},
	{ID: tokenauth.MetricAccessExpired, Name: "tokenauth_access_expired_total", Help: "Access tokens rejected as expired."},
	{ID: tokenauth.MetricAccessTampered, Name: "tokenauth_access_tampered_total", Help: "Access tokens rejected for a bad signature."},
	{ID: tokenauth.MetricAccessInvalid, Name: "tokenauth_access_invalid_total", Help: "Access tokens rejected as missing or malformed."},
	{ID: tokenauth.MetricRefreshSuccess, Name: "tokenauth_refresh_success_total", Help: "Refresh token rotations."},
	{ID: tokenauth.MetricRefreshFailure, Name: "tokenauth_refresh_failure_total", Help: "Refresh attempts rejected."},
	{ID: tokenauth.MetricSessionCreated, Name: "tokenauth_session_created_total", Help: "Refresh sessions issued at login."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Single-session logouts."},
	{ID: tokenauth.MetricLogoutAll, Name: "tokenauth_logout_all_total", Help: "Logout-all operations."},
	{ID: tokenauth.MetricPasswordResetRequest, Name: "tokenauth_password_reset_request_total", Help: "Forgot-password requests."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricVerifyLatency, Name: "tokenauth_verify_latency_seconds", Help: "VerifyAccess latency."},
}

// AuditDropped names the dispatcher backpressure counter.
const (
	AuditDroppedName = "tokenauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

// HistogramBounds are the upper bounds, in seconds, of the engine's latency
// buckets.
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

// HistogramBoundSuffix renders HistogramBounds as instrument-name suffixes.
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

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets.
func NormalizeBuckets(raw []uint64) [tokenauth.HistogramBucketCount]uint64 {
	var out [tokenauth.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [tokenauth.HistogramBucketCount]uint64) [tokenauth.HistogramBucketCount]uint64 {
	var out [tokenauth.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
