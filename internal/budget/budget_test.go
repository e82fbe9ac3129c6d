package budget

import (
	"fmt"
	"sync"
	"testing"

	"github.com/VishnuVamsi7/DocReporter/internal/salience"
	"github.com/VishnuVamsi7/DocReporter/internal/segment"
)

func makeUnits(scores ...float64) ([]*segment.Unit, []salience.Score) {
	units := make([]*segment.Unit, len(scores))
	ss := make([]salience.Score, len(scores))
	for i, v := range scores {
		id := fmt.Sprintf("u%04d", i)
		units[i] = &segment.Unit{ID: id, Index: i}
		ss[i] = salience.Score{UnitID: id, Value: v}
	}
	return units, ss
}

func TestAllocate_NeverExceedsGlobal(t *testing.T) {
	units, scores := makeUnits(0.9, 0.7, 0.5, 0.3, 0.1)
	cfg := DefaultConfig()
	plan, err := Allocate(units, scores, cfg)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := plan.Total() + plan.Reserve.Remaining(); got > cfg.Global {
		t.Errorf("allocations %d + reserve exceed global %d", got, cfg.Global)
	}
}

func TestAllocate_FloorForRepresentedUnits(t *testing.T) {
	units, scores := makeUnits(1.0, 0.6, 0.2, 0.05)
	plan, err := Allocate(units, scores, DefaultConfig())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	for _, u := range units {
		if plan.Dropped[u.ID] {
			continue
		}
		if a := plan.AllocationFor(u.ID); a < plan.Floor {
			t.Errorf("unit %s allocated %d, below floor %d", u.ID, a, plan.Floor)
		}
	}
}

func TestAllocate_DropsLowestWhenFloorsExhaustBudget(t *testing.T) {
	// 10 units at floor 240 need 2400; global 1000 with 10% reserve
	// leaves 900, enough for 3 floors.
	vals := make([]float64, 10)
	for i := range vals {
		vals[i] = float64(10-i) / 10
	}
	units, scores := makeUnits(vals...)
	plan, err := Allocate(units, scores, Config{Global: 1000, Floor: 240, ReserveFraction: 0.10})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(plan.Dropped) != 7 {
		t.Fatalf("expected 7 dropped units, got %d", len(plan.Dropped))
	}
	// The highest-salience units keep their floors.
	for _, id := range []string{"u0000", "u0001", "u0002"} {
		if plan.Dropped[id] {
			t.Errorf("high-salience unit %s should not be dropped", id)
		}
	}
	if !plan.Dropped["u0009"] {
		t.Error("lowest-salience unit should be dropped")
	}
	for id := range plan.Dropped {
		if plan.AllocationFor(id) != 0 {
			t.Errorf("dropped unit %s has nonzero allocation", id)
		}
	}
}

func TestAllocate_MaxShareCap(t *testing.T) {
	units, scores := makeUnits(1.0, 0.01)
	cfg := Config{Global: 10000, Floor: 100, DropThreshold: 0.15, MaxShare: 0.25, ReserveFraction: 0}
	plan, err := Allocate(units, scores, cfg)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a := plan.AllocationFor("u0000"); a > 2500 {
		t.Errorf("allocation %d exceeds 25%% share cap", a)
	}
}

func TestAllocate_BelowThresholdGetsFloorOnly(t *testing.T) {
	units, scores := makeUnits(0.9, 0.1)
	cfg := Config{Global: 10000, Floor: 200, DropThreshold: 0.15, ReserveFraction: 0}
	plan, err := Allocate(units, scores, cfg)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if a := plan.AllocationFor("u0001"); a != 200 {
		t.Errorf("below-threshold unit should get exactly the floor, got %d", a)
	}
	if a := plan.AllocationFor("u0000"); a <= 200 {
		t.Errorf("above-threshold unit should get floor plus remainder, got %d", a)
	}
}

func TestAllocate_Errors(t *testing.T) {
	units, scores := makeUnits(0.5)
	if _, err := Allocate(units, scores[:0], DefaultConfig()); err == nil {
		t.Error("expected error on length mismatch")
	}
	if _, err := Allocate(units, scores, Config{Global: 0}); err == nil {
		t.Error("expected error on zero global budget")
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	units, scores := makeUnits(0.5, 0.5, 0.5, 0.8)
	p1, err := Allocate(units, scores, DefaultConfig())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	p2, _ := Allocate(units, scores, DefaultConfig())
	for id, a := range p1.Allocations {
		if p2.Allocations[id] != a {
			t.Errorf("unit %s: %d vs %d across runs", id, a, p2.Allocations[id])
		}
	}
}

func TestReserve_ClaimAllOrNothing(t *testing.T) {
	r := NewReserve(100)
	if !r.Claim(60) {
		t.Fatal("claim within reserve should succeed")
	}
	if r.Claim(60) {
		t.Error("claim past remaining reserve should fail")
	}
	if got := r.Remaining(); got != 40 {
		t.Errorf("remaining = %d, want 40", got)
	}
	if !r.Claim(40) {
		t.Error("claiming the exact remainder should succeed")
	}
}

func TestReserve_ConcurrentClaims(t *testing.T) {
	r := NewReserve(1000)
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Claim(100) {
				mu.Lock()
				granted += 100
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if granted > 1000 {
		t.Errorf("granted %d exceeds reserve capacity", granted)
	}
	if granted+r.Remaining() != 1000 {
		t.Errorf("granted %d + remaining %d != 1000", granted, r.Remaining())
	}
}
