package tokenauth

import (
	internalmetrics "github.com/MrEthical07/tokenauth/internal/metrics"
)

// MetricID identifies a counter or histogram in the engine's metrics.
type MetricID = internalmetrics.MetricID

const (
	MetricRegisterSuccess      = MetricID(internalmetrics.MetricRegisterSuccess)
	MetricRegisterDuplicate    = MetricID(internalmetrics.MetricRegisterDuplicate)
	MetricLoginSuccess         = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure         = MetricID(internalmetrics.MetricLoginFailure)
	MetricLoginRateLimited     = MetricID(internalmetrics.MetricLoginRateLimited)
	MetricAccessAccepted       = MetricID(internalmetrics.MetricAccessAccepted)
	MetricAccessExpired        = MetricID(internalmetrics.MetricAccessExpired)
	MetricAccessTampered       = MetricID(internalmetrics.MetricAccessTampered)
	MetricAccessInvalid        = MetricID(internalmetrics.MetricAccessInvalid)
	MetricRefreshSuccess       = MetricID(internalmetrics.MetricRefreshSuccess)
	MetricRefreshFailure       = MetricID(internalmetrics.MetricRefreshFailure)
	MetricSessionCreated       = MetricID(internalmetrics.MetricSessionCreated)
	MetricLogout               = MetricID(internalmetrics.MetricLogout)
	MetricLogoutAll            = MetricID(internalmetrics.MetricLogoutAll)
	MetricPasswordResetRequest = MetricID(internalmetrics.MetricPasswordResetRequest)
	// MetricVerifyLatency is the VerifyAccess latency histogram.
	MetricVerifyLatency = MetricID(internalmetrics.MetricVerifyLatency)
)

// HistogramBucketCount is the number of latency buckets per histogram.
const HistogramBucketCount = internalmetrics.HistogramBucketCount

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a Metrics instance. When cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
