package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m := New(Config{Enabled: false, EnableLatency: true})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	nilMetrics.Observe(MetricVerifyLatency, time.Second)
	if nilMetrics.Enabled() || nilMetrics.LatencyEnabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestCountersConcurrent(t *testing.T) {
	m := New(Config{Enabled: true})

	const workers, per = 8, 1000
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				m.Inc(MetricLoginFailure)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginFailure); got != workers*per {
		t.Fatalf("expected %d, got %d", workers*per, got)
	}

	m.Add(MetricLogoutAll, 3)
	m.Add(MetricIDCount, 3)
	if got := m.Snapshot().Counters[MetricLogoutAll]; got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestHistogramBucketsAndSum(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})

	samples := []time.Duration{
		time.Millisecond,
		7 * time.Millisecond,
		30 * time.Millisecond,
		2 * time.Second,
		-time.Millisecond,
	}
	for _, d := range samples {
		m.Observe(MetricVerifyLatency, d)
	}
	m.Observe(MetricLoginSuccess, time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricVerifyLatency]
	want := []uint64{2, 1, 0, 1, 0, 0, 0, 1}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d (all %v)", i, want[i], buckets[i], buckets)
		}
	}

	wantSum := time.Millisecond + 7*time.Millisecond + 30*time.Millisecond + 2*time.Second
	if got := snap.HistogramSums[MetricVerifyLatency]; got != wantSum {
		t.Fatalf("expected sum %v, got %v", wantSum, got)
	}
	if _, ok := snap.Counters[MetricVerifyLatency]; ok {
		t.Fatal("histogram id must not appear among counters")
	}
}

func TestLatencyRequiresEnabled(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: false})
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if len(m.Snapshot().Histograms) != 0 {
		t.Fatal("latency histogram must be off")
	}
}
