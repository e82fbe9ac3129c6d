package compress

import (
	"testing"
	"time"
)

func TestStats_Snapshot(t *testing.T) {
	s := NewStats(time.Hour)
	for _, ms := range []int64{10, 20, 30, 40, 100} {
		s.Record(ms)
	}

	snap := s.Snapshot()
	if snap.Count != 5 {
		t.Errorf("count = %d", snap.Count)
	}
	if snap.MinMs != 10 || snap.MaxMs != 100 {
		t.Errorf("min/max = %d/%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 40 {
		t.Errorf("avg = %v", snap.AvgMs)
	}
	if snap.P50Ms < 20 || snap.P50Ms > 40 {
		t.Errorf("p50 = %v", snap.P50Ms)
	}
	if snap.P95Ms < snap.P50Ms {
		t.Errorf("p95 %v below p50 %v", snap.P95Ms, snap.P50Ms)
	}
}

func TestStats_Empty(t *testing.T) {
	snap := NewStats(time.Hour).Snapshot()
	if snap.Count != 0 || snap.MaxMs != 0 {
		t.Errorf("empty snapshot = %+v", snap)
	}
}

func TestStats_NegativeClamped(t *testing.T) {
	s := NewStats(time.Hour)
	s.Record(-5)
	if snap := s.Snapshot(); snap.MinMs != 0 {
		t.Errorf("negative duration should clamp to 0, got %d", snap.MinMs)
	}
}
