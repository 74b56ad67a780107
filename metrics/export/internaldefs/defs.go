package internaldefs

import (
	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   officeauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   officeauth.MetricID
	Name string
	Help string
}

// BucketCount is the number of histogram buckets, +Inf included.
const BucketCount = 8

// AuditDroppedName is exported next to the engine counters.
const (
	AuditDroppedName = "officeauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: officeauth.MetricResolveSession, Name: "officeauth_resolve_session_total", Help: "Identities resolved from a session cookie."},
	{ID: officeauth.MetricResolveToken, Name: "officeauth_resolve_token_total", Help: "Identities resolved from a bearer token."},
	{ID: officeauth.MetricResolveAnonymous, Name: "officeauth_resolve_anonymous_total", Help: "Resolutions that produced no identity."},
	{ID: officeauth.MetricResolveProviderError, Name: "officeauth_resolve_provider_error_total", Help: "Identity provider backend failures."},
	{ID: officeauth.MetricTokenRejected, Name: "officeauth_token_rejected_total", Help: "Bearer tokens that failed verification."},
	{ID: officeauth.MetricTokenIssued, Name: "officeauth_token_issued_total", Help: "Signed bearer tokens."},
	{ID: officeauth.MetricSessionCreated, Name: "officeauth_session_created_total", Help: "Started sessions."},
	{ID: officeauth.MetricSessionRevoked, Name: "officeauth_session_revoked_total", Help: "Ended sessions."},
	{ID: officeauth.MetricRateLimitAllowed, Name: "officeauth_rate_limit_allowed_total", Help: "Admitted rate-limit checks."},
	{ID: officeauth.MetricRateLimitDenied, Name: "officeauth_rate_limit_denied_total", Help: "Rate-limit checks that denied requests."},
	{ID: officeauth.MetricRateLimitBackendError, Name: "officeauth_rate_limit_backend_error_total", Help: "Rate-limit checks whose backend failed."},
	{ID: officeauth.MetricAuthorizeDenied, Name: "officeauth_authorize_denied_total", Help: "Role checks that rejected the caller."},
}

var HistogramDefs = []HistogramDef{
	{ID: officeauth.MetricResolveLatency, Name: "officeauth_resolve_latency_seconds", Help: "Identity resolution latency."},
}

// UpperBounds are the finite bucket limits in seconds; the last bucket is +Inf.
var UpperBounds = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBounds renders every bucket limit as a Prometheus le label.
var HistogramBounds = []string{
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
