package internaldefs

import (
	goAuthFlow "github.com/MrEthical07/goAuthFlow"
)

// CounterDef maps a counter to its exported name.
type CounterDef struct {
	ID   goAuthFlow.MetricID
	Name string
	Help string
}

// HistogramDef maps a histogram to its exported name.
type HistogramDef struct {
	ID   goAuthFlow.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dropped audit events.
const AuditDroppedName = "goauthflow_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: goAuthFlow.MetricIdentifierRejected, Name: "goauthflow_identifier_rejected_total", Help: "Identifiers rejected before any remote call."},
	{ID: goAuthFlow.MetricOTPRequestSuccess, Name: "goauthflow_otp_request_success_total", Help: "OTP requests that returned a challenge."},
	{ID: goAuthFlow.MetricOTPRequestFailure, Name: "goauthflow_otp_request_failure_total", Help: "OTP requests that failed."},
	{ID: goAuthFlow.MetricOTPVerifySuccess, Name: "goauthflow_otp_verify_success_total", Help: "Accepted one-time codes."},
	{ID: goAuthFlow.MetricOTPVerifyFailure, Name: "goauthflow_otp_verify_failure_total", Help: "Rejected or expired one-time codes."},
	{ID: goAuthFlow.MetricOTPAttemptsExceeded, Name: "goauthflow_otp_attempts_exceeded_total", Help: "Challenges invalidated by the attempt cap."},
	{ID: goAuthFlow.MetricResendThrottled, Name: "goauthflow_resend_throttled_total", Help: "Resends rejected by the cooldown."},
	{ID: goAuthFlow.MetricPasswordLoginSuccess, Name: "goauthflow_password_login_success_total", Help: "Successful password logins."},
	{ID: goAuthFlow.MetricPasswordLoginFailure, Name: "goauthflow_password_login_failure_total", Help: "Failed password logins."},
	{ID: goAuthFlow.MetricAccountCreated, Name: "goauthflow_account_created_total", Help: "Accounts created."},
	{ID: goAuthFlow.MetricAccountCreationFailure, Name: "goauthflow_account_creation_failure_total", Help: "Failed account creations."},
	{ID: goAuthFlow.MetricPasswordRejected, Name: "goauthflow_password_rejected_total", Help: "Passwords rejected by local validation."},
	{ID: goAuthFlow.MetricSessionPersisted, Name: "goauthflow_session_persisted_total", Help: "Session tokens handed to the persister."},
	{ID: goAuthFlow.MetricSessionPersistFailure, Name: "goauthflow_session_persist_failure_total", Help: "Session persister failures."},
	{ID: goAuthFlow.MetricFlowReset, Name: "goauthflow_flow_reset_total", Help: "Flow resets and back actions."},
	{ID: goAuthFlow.MetricStaleResponseDiscarded, Name: "goauthflow_stale_response_discarded_total", Help: "Remote results discarded after a reset."},
	{ID: goAuthFlow.MetricNetworkError, Name: "goauthflow_network_error_total", Help: "Remote calls without a usable response."},
	{ID: goAuthFlow.MetricRateLimitHit, Name: "goauthflow_rate_limit_hit_total", Help: "Requests denied by a rate limit."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAuthFlow.MetricRemoteLatency, Name: "goauthflow_remote_latency_seconds", Help: "Latency of remote service calls."},
}

// HistogramBounds are the upper bounds of the eight latency buckets.
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

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
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

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
