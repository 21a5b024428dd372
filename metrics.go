package portalauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed password logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricLoginChallengeRequired counts logins gated behind a two-factor
	// challenge.
	MetricLoginChallengeRequired
	// MetricLoginCoalesced counts duplicate submits absorbed by the
	// in-flight guard.
	MetricLoginCoalesced
	// MetricTwoFactorLoginSuccess counts completed challenge verifications.
	MetricTwoFactorLoginSuccess
	// MetricTwoFactorLoginFailure counts failed challenge verifications.
	MetricTwoFactorLoginFailure
	// MetricTwoFactorSetupRequested counts enrollment starts.
	MetricTwoFactorSetupRequested
	// MetricTwoFactorSetupConfirmed counts completed enrollments.
	MetricTwoFactorSetupConfirmed
	// MetricOTPVerifySuccess counts accepted email/phone OTPs.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure counts rejected email/phone OTPs.
	MetricOTPVerifyFailure
	// MetricInvitationFetched counts invitation token lookups.
	MetricInvitationFetched
	// MetricInvitationAccepted counts consumed invitations.
	MetricInvitationAccepted
	// MetricInvitationDeclined counts declined invitations.
	MetricInvitationDeclined
	// MetricInvitationDead counts lookups resolving to a terminal state.
	MetricInvitationDead
	// MetricRegisterSuccess counts completed signups.
	MetricRegisterSuccess
	// MetricRegisterAutoLoginFallback counts signups whose implicit login
	// failed and fell back to the manual login screen.
	MetricRegisterAutoLoginFallback
	// MetricPasswordResetSuccess counts completed self-service resets.
	MetricPasswordResetSuccess
	// MetricPasswordResetFailure counts failed self-service resets.
	MetricPasswordResetFailure
	// MetricPasswordForceChangeSuccess counts completed forced changes.
	MetricPasswordForceChangeSuccess
	// MetricPasswordForceChangeFailure counts failed forced changes.
	MetricPasswordForceChangeFailure
	// MetricSessionWritten counts session store writes.
	MetricSessionWritten
	// MetricSessionCleared counts session store clears.
	MetricSessionCleared
	// MetricSessionExpired counts backend-rejected sessions.
	MetricSessionExpired
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricNavigationDecision counts landing decisions.
	MetricNavigationDecision
	// MetricNavigationDegraded counts root-path checks that fell back to
	// the cached role because the context re-fetch failed.
	MetricNavigationDegraded
	// MetricDecideLatency is the landing-resolution latency histogram.
	MetricDecideLatency

	metricIDCount
)

const histBucketCount = 8

type paddedCounter struct {
	value uint64
	_     [56]byte
}

type paddedHistogram struct {
	buckets [histBucketCount]uint64
}

// Metrics holds atomic counters and an optional latency histogram. All
// operations are no-ops when disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]paddedHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is active.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricDecideLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads the current counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies all counters and histogram buckets.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricDecideLatency].buckets[i])
		}
		s.Histograms[MetricDecideLatency] = buckets
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
