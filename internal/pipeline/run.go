// Package pipeline orchestrates the report generation stages and manages
// asynchronous jobs for the HTTP API.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
	"github.com/VishnuVamsi7/DocReporter/internal/budget"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/config"
	"github.com/VishnuVamsi7/DocReporter/internal/digest"
	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
	"github.com/VishnuVamsi7/DocReporter/internal/report"
	"github.com/VishnuVamsi7/DocReporter/internal/salience"
	"github.com/VishnuVamsi7/DocReporter/internal/segment"
)

// captionLimit caps table/figure captions before digesting.
const captionLimit = 160

// Hooks lets callers observe progress. All fields are optional.
type Hooks struct {
	Phase    func(name string)
	Planned  func(totalUnits, dropped int)
	UnitDone func(cu *compress.CompressedUnit)
	Digested func()
}

func (h Hooks) phase(name string) {
	if h.Phase != nil {
		h.Phase(name)
	}
}

// RunRequest is one synchronous report generation.
type RunRequest struct {
	Title  string
	Blocks []block.ContentBlock
	// GlobalBudget overrides the configured budget when positive.
	GlobalBudget int
	Hooks        Hooks
}

// Runner executes the full pipeline: normalize, build structure, segment,
// rank, allocate, compress and digest concurrently, assemble.
type Runner struct {
	engine  *compress.Engine
	tuning  config.Tuning
	workers int
	log     *slog.Logger
}

func NewRunner(engine *compress.Engine, tuning config.Tuning, workers int, log *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{engine: engine, tuning: tuning, workers: workers, log: log}
}

// Run generates a report from normalized-input blocks. Structure and
// assembly failures abort; compression failures degrade locally and are
// recorded in the manifest.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*report.Document, error) {
	hooks := req.Hooks

	hooks.phase("normalizing")
	blocks := block.Normalize(req.Blocks, r.tuning.NormalizeConfig())
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no usable content blocks after normalization")
	}

	hooks.phase("building_structure")
	tree, err := doctree.Build(req.Title, blocks, r.tuning.BuilderConfig())
	if err != nil {
		return nil, fmt.Errorf("build structure: %w", err)
	}

	hooks.phase("segmenting")
	units := segment.Split(tree, r.tuning.SegmentConfig())
	if len(units) == 0 {
		return nil, fmt.Errorf("document produced no units")
	}

	hooks.phase("ranking")
	scores := salience.Rank(tree, units, r.tuning.SalienceConfig())

	bcfg := r.tuning.BudgetConfig()
	if req.GlobalBudget > 0 {
		bcfg.Global = req.GlobalBudget
	}
	plan, err := budget.Allocate(units, scores.Units, bcfg)
	if err != nil {
		return nil, fmt.Errorf("allocate budget: %w", err)
	}
	if hooks.Planned != nil {
		hooks.Planned(len(units), len(plan.Dropped))
	}
	for _, u := range units {
		if plan.Dropped[u.ID] {
			if s, ok := scores.ByUnitID(u.ID); ok {
				r.log.Info("unit dropped", "unit_id", u.ID, "salience", s.Value)
			}
		}
	}

	hooks.phase("compressing")
	compressed, digests, err := r.transform(ctx, tree, units, plan, hooks)
	if err != nil {
		return nil, err
	}

	hooks.phase("assembling")
	doc, err := report.Assemble(report.Inputs{
		Tree:       tree,
		Units:      units,
		Plan:       plan,
		Compressed: compressed,
		Digests:    digests,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble report: %w", err)
	}
	return doc, nil
}

// transform fans compression and digesting out over the worker pool.
// Results land in index-addressed slices so output never depends on
// completion order.
func (r *Runner) transform(ctx context.Context, tree *doctree.Tree, units []*segment.Unit, plan *budget.Plan, hooks Hooks) (map[string]*compress.CompressedUnit, map[int]digest.Result, error) {
	var mediaNodes []*doctree.Node
	for _, n := range tree.Leaves() {
		if n.Kind == doctree.NodeTable || n.Kind == doctree.NodeFigure {
			mediaNodes = append(mediaNodes, n)
		}
	}

	unitResults := make([]*compress.CompressedUnit, len(units))
	mediaResults := make([]digest.Result, len(mediaNodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, u := range units {
		if plan.Dropped[u.ID] {
			continue
		}
		g.Go(func() error {
			cu, err := r.engine.CompressUnit(gctx, u.ID, u.Serialize(), plan.AllocationFor(u.ID), plan.Reserve)
			if err != nil {
				// Local degradation: the unit carries the truncation
				// fallback and the manifest records it.
				r.log.Error("compression degraded", "unit_id", u.ID, "error", err)
			}
			unitResults[i] = cu
			if hooks.UnitDone != nil {
				hooks.UnitDone(cu)
			}
			return gctx.Err()
		})
	}

	dcfg := r.tuning.DigestConfig()
	for i, n := range mediaNodes {
		g.Go(func() error {
			caption := n.Caption()
			if caption != "" {
				caption = r.engine.CompressCaption(gctx, fmt.Sprintf("cap-%d", n.ID), caption, captionLimit)
			}
			if n.Kind == doctree.NodeTable {
				mediaResults[i] = digest.DigestTable(n, caption, dcfg)
			} else {
				mediaResults[i] = digest.DigestFigure(n, caption)
			}
			if hooks.Digested != nil {
				hooks.Digested()
			}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("pipeline canceled: %w", err)
	}

	compressed := make(map[string]*compress.CompressedUnit, len(units))
	for i, cu := range unitResults {
		if cu != nil {
			compressed[units[i].ID] = cu
		}
	}
	digests := make(map[int]digest.Result, len(mediaNodes))
	for i, n := range mediaNodes {
		digests[n.ID] = mediaResults[i]
	}
	return compressed, digests, nil
}
