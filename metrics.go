package trackauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshSessionMismatch counts refresh tokens presented after their
	// session was rotated or logged out.
	MetricRefreshSessionMismatch
	MetricLogout
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricPasswordRehashed
	MetricEmailVerificationRequest
	MetricEmailVerificationSuccess
	MetricEmailVerificationFailure
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	// MetricSessionRejected counts gate rejections caused by a stale session id.
	MetricSessionRejected
	MetricAuthenticateLatency
	metricIDCount
)

var metricDefs = [metricIDCount]struct {
	name, help string
}{
	MetricLoginSuccess:             {"login_success", "Successful logins."},
	MetricLoginFailure:             {"login_failure", "Failed logins."},
	MetricLoginRateLimited:         {"login_rate_limited", "Logins rejected by the throttle."},
	MetricRefreshSuccess:           {"refresh_success", "Successful token refreshes."},
	MetricRefreshFailure:           {"refresh_failure", "Failed token refreshes."},
	MetricRefreshSessionMismatch:   {"refresh_session_mismatch", "Refresh tokens presented for a superseded session."},
	MetricLogout:                   {"logout", "Logouts."},
	MetricRegisterSuccess:          {"register_success", "Accounts registered."},
	MetricRegisterDuplicate:        {"register_duplicate", "Registrations rejected for a taken email."},
	MetricPasswordChangeSuccess:    {"password_change_success", "Password changes."},
	MetricPasswordChangeInvalidOld: {"password_change_invalid_old", "Password changes rejected for a wrong current password."},
	MetricPasswordResetRequest:     {"password_reset_request", "Password reset requests, including unknown emails."},
	MetricPasswordResetSuccess:     {"password_reset_success", "Completed password resets."},
	MetricPasswordResetFailure:     {"password_reset_failure", "Rejected password resets."},
	MetricPasswordRehashed:         {"password_rehashed", "Hashes upgraded to the current work factor at login."},
	MetricEmailVerificationRequest: {"email_verification_request", "Verification emails queued."},
	MetricEmailVerificationSuccess: {"email_verification_success", "Emails verified."},
	MetricEmailVerificationFailure: {"email_verification_failure", "Rejected verification tokens."},
	MetricAuthenticateSuccess:      {"authenticate_success", "Requests admitted by the gate."},
	MetricAuthenticateFailure:      {"authenticate_failure", "Requests rejected by the gate."},
	MetricSessionRejected:          {"session_rejected", "Gate rejections caused by a stale session."},
	MetricAuthenticateLatency:      {"authenticate_latency", "Gate latency."},
}

// Name returns the snake_case metric name without a namespace.
func (id MetricID) Name() string {
	if id >= metricIDCount {
		return ""
	}
	return metricDefs[id].name
}

// Help returns a one-line description of the metric.
func (id MetricID) Help() string {
	if id >= metricIDCount {
		return ""
	}
	return metricDefs[id].help
}

// HistogramBounds are the upper bounds of the latency buckets. The last
// bucket is unbounded.
var HistogramBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = len(HistogramBounds) + 1
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
	sumNs   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a set of lock-free counters plus one latency histogram.
// A nil *Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	LatencySum time.Duration
}

// NewMetrics returns a Metrics with counters and latency histograms enabled per cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a gate latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthenticateLatency {
		return
	}
	atomic.AddUint64(&m.latency.buckets[bucketIndex(d)], 1)
	if d > 0 {
		atomic.AddUint64(&m.latency.sumNs, uint64(d))
	}
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram bucket. A disabled Metrics
// returns empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthenticateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
		s.LatencySum = time.Duration(atomic.LoadUint64(&m.latency.sumNs))
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return len(HistogramBounds)
}
