// Package budget distributes the global output budget across units in
// proportion to salience.
package budget

import (
	"fmt"
	"sort"

	"github.com/VishnuVamsi7/DocReporter/internal/salience"
	"github.com/VishnuVamsi7/DocReporter/internal/segment"
)

// Config controls allocation.
type Config struct {
	// Global is the total output budget B in characters.
	Global int
	// Floor is the minimum allocation F for a represented unit.
	Floor int
	// DropThreshold is the salience below which a unit gets only the
	// floor (or nothing once the budget runs out).
	DropThreshold float64
	// MaxShare caps any single unit at this fraction of B. Zero means
	// no cap.
	MaxShare float64
	// ReserveFraction of B is withheld as the retry reserve pool.
	ReserveFraction float64
}

// DefaultConfig returns the defaults used by the pipeline.
func DefaultConfig() Config {
	return Config{
		Global:          15000,
		Floor:           240,
		DropThreshold:   0.15,
		MaxShare:        0.25,
		ReserveFraction: 0.10,
	}
}

// Plan maps unit ids to character budgets. Invariants: the sum of all
// allocations plus the reserve never exceeds Global; every non-dropped
// unit's allocation is at least Floor.
type Plan struct {
	Global      int
	Floor       int
	Allocations map[string]int
	// Dropped lists unit ids that receive no budget; they render as
	// single-line stubs. Being dropped is not an error.
	Dropped map[string]bool
	Reserve *Reserve
}

// AllocationFor returns the budget for a unit (0 when dropped).
func (p *Plan) AllocationFor(unitID string) int {
	return p.Allocations[unitID]
}

// Allocate builds the plan in a single pass: floors first in descending
// salience order, then the post-reserve remainder proportionally among
// units whose score clears DropThreshold. No iteration to convergence;
// the only sort is by score, so the whole pass is O(n log n).
func Allocate(units []*segment.Unit, scores []salience.Score, cfg Config) (*Plan, error) {
	if len(units) != len(scores) {
		return nil, fmt.Errorf("allocate: %d units but %d scores", len(units), len(scores))
	}
	if cfg.Global <= 0 {
		return nil, fmt.Errorf("allocate: global budget must be positive, got %d", cfg.Global)
	}
	if cfg.Floor <= 0 {
		cfg.Floor = 1
	}

	plan := &Plan{
		Global:      cfg.Global,
		Floor:       cfg.Floor,
		Allocations: make(map[string]int, len(units)),
		Dropped:     make(map[string]bool),
	}

	reserve := int(float64(cfg.Global) * cfg.ReserveFraction)
	available := cfg.Global - reserve

	// Rank by score, ties broken by document order (earlier wins).
	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := scores[order[a]].Value, scores[order[b]].Value
		if sa != sb {
			return sa > sb
		}
		return order[a] < order[b]
	})

	// Floors first: every unit is represented while the budget lasts.
	for _, i := range order {
		id := units[i].ID
		if available >= cfg.Floor {
			plan.Allocations[id] = cfg.Floor
			available -= cfg.Floor
		} else {
			plan.Allocations[id] = 0
			plan.Dropped[id] = true
		}
	}

	// Proportional remainder among units above the threshold.
	eligible := make([]int, 0, len(units))
	var sum float64
	for _, i := range order {
		if plan.Dropped[units[i].ID] {
			continue
		}
		if scores[i].Value >= cfg.DropThreshold {
			eligible = append(eligible, i)
			sum += scores[i].Value
		}
	}

	maxPerUnit := cfg.Global
	if cfg.MaxShare > 0 {
		maxPerUnit = int(float64(cfg.Global) * cfg.MaxShare)
	}

	if sum > 0 && available > 0 {
		remainder := available
		for _, i := range eligible {
			id := units[i].ID
			extra := int(float64(remainder) * scores[i].Value / sum)
			if plan.Allocations[id]+extra > maxPerUnit {
				extra = maxPerUnit - plan.Allocations[id]
				if extra < 0 {
					extra = 0
				}
			}
			plan.Allocations[id] += extra
			available -= extra
		}
	}

	// Whatever the single pass did not place joins the reserve.
	plan.Reserve = NewReserve(reserve + available)
	return plan, nil
}

// Total returns the sum of all allocations (excluding the reserve).
func (p *Plan) Total() int {
	total := 0
	for _, v := range p.Allocations {
		total += v
	}
	return total
}
