package goAuthFlow

import (
	"sync/atomic"
	"time"
)

// MetricID names one counter or histogram in [Metrics].
type MetricID uint16

const (
	// MetricIdentifierRejected counts identifiers rejected by the classifier before any call.
	MetricIdentifierRejected MetricID = iota
	// MetricOTPRequestSuccess counts OTP requests (initial and resend) that returned a challenge.
	MetricOTPRequestSuccess
	// MetricOTPRequestFailure counts OTP requests that failed.
	MetricOTPRequestFailure
	// MetricOTPVerifySuccess counts accepted codes.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure counts rejected codes, including expired challenges.
	MetricOTPVerifyFailure
	// MetricOTPAttemptsExceeded counts challenges invalidated by the attempt cap.
	MetricOTPAttemptsExceeded
	// MetricResendThrottled counts resends rejected by the local cooldown.
	MetricResendThrottled
	// MetricPasswordLoginSuccess counts successful password logins.
	MetricPasswordLoginSuccess
	// MetricPasswordLoginFailure counts failed password logins.
	MetricPasswordLoginFailure
	// MetricAccountCreated counts accounts created through the signup flow.
	MetricAccountCreated
	// MetricAccountCreationFailure counts failed account creations.
	MetricAccountCreationFailure
	// MetricPasswordRejected counts password submissions rejected locally.
	MetricPasswordRejected
	// MetricSessionPersisted counts session tokens handed to the persister.
	MetricSessionPersisted
	// MetricSessionPersistFailure counts persister failures.
	MetricSessionPersistFailure
	// MetricFlowReset counts explicit resets and back actions.
	MetricFlowReset
	// MetricStaleResponseDiscarded counts remote results dropped because the flow was reset.
	MetricStaleResponseDiscarded
	// MetricNetworkError counts remote calls that failed without a usable response.
	MetricNetworkError
	// MetricRateLimitHit counts requests denied by a rate limit.
	MetricRateLimitHit
	// MetricRemoteLatency is the latency histogram of remote calls.
	MetricRemoteLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and one latency histogram. A nil or
// disabled *Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics allocates metrics according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRemoteLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRemoteLatency].buckets[i])
		}
		s.Histograms[MetricRemoteLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
