package main

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/session"
)

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}

	if got := percentile(samples, 50); got != 50*time.Millisecond {
		t.Fatalf("p50: expected 50ms, got %s", got)
	}
	if got := percentile(samples, 100); got != 100*time.Millisecond {
		t.Fatalf("p100: expected 100ms, got %s", got)
	}
	if got := percentile(nil, 99); got != 0 {
		t.Fatalf("empty: expected 0, got %s", got)
	}
}

func TestComputeStatsSortsSamples(t *testing.T) {
	s := computeStats(time.Second, []time.Duration{3, 1, 2}, 1)
	if s.ops != 3 || s.failures != 1 || s.p50 != 2 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.opsPerS != 3 {
		t.Fatalf("expected 3 ops/sec, got %f", s.opsPerS)
	}
}

func TestPhasesAgainstMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	slots, issue, err := runIssuePhase(ctx, store, 50, 4)
	if err != nil {
		t.Fatalf("issue phase failed: %v", err)
	}
	if issue.ops != 50 || issue.failures != 0 {
		t.Fatalf("unexpected issue stats %+v", issue)
	}

	if v := runValidatePhase(ctx, store, slots, 200, 4); v.failures != 0 {
		t.Fatalf("validate failures: %d", v.failures)
	}
	if r := runRotatePhase(ctx, store, slots, 200, 4); r.failures != 0 {
		t.Fatalf("rotate failures: %d", r.failures)
	}

	violations, err := runContentionPhase(ctx, store, 20, 8)
	if err != nil {
		t.Fatalf("contention phase failed: %v", err)
	}
	if violations != 0 {
		t.Fatalf("expected single winner per round, got %d violations", violations)
	}
}
