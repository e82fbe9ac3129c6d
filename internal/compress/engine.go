package compress

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/VishnuVamsi7/DocReporter/internal/budget"
	"github.com/VishnuVamsi7/DocReporter/internal/salience"
)

// EngineConfig controls retries and the preservation check.
type EngineConfig struct {
	// MaxAttempts bounds calls per unit (preservation retries included).
	MaxAttempts int
	// PreservationTolerance is the fraction of required entities that
	// may go missing before the result counts as preservation-failed.
	PreservationTolerance float64
	// EntityWeightThreshold selects which extracted entities become
	// required (see salience.Entity weights).
	EntityWeightThreshold float64
	// ExpandFactor scales the budget claimed from the reserve for the
	// preservation retry.
	ExpandFactor float64
	// CallTimeout bounds each backend call.
	CallTimeout time.Duration
}

// DefaultEngineConfig returns the defaults used by the pipeline.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxAttempts:           2,
		PreservationTolerance: 0.34,
		EntityWeightThreshold: 0.7,
		ExpandFactor:          0.5,
		CallTimeout:           60 * time.Second,
	}
}

// Engine wraps a Compressor with budget enforcement, the entity
// preservation check, retry with reserve-funded budget expansion, and the
// truncation fallback. One Engine is shared by all workers; it is safe for
// concurrent use.
type Engine struct {
	backend Compressor
	limiter *rate.Limiter
	stats   *Stats
	log     *slog.Logger
	cfg     EngineConfig
}

// NewEngine creates an engine. limiter may be nil to disable rate limiting.
func NewEngine(backend Compressor, limiter *rate.Limiter, stats *Stats, log *slog.Logger, cfg EngineConfig) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.ExpandFactor <= 0 {
		cfg.ExpandFactor = 0.5
	}
	return &Engine{backend: backend, limiter: limiter, stats: stats, log: log, cfg: cfg}
}

// Stats returns the engine's latency tracker, if any.
func (e *Engine) LatencyStats() *Stats { return e.stats }

// CompressUnit condenses src to the allocated budget. It never returns a
// nil unit: on backend failure the unit carries the truncation fallback
// and the error describes why. Cancellation of this call must not affect
// sibling calls, so the timeout context is derived per attempt.
func (e *Engine) CompressUnit(ctx context.Context, unitID, src string, alloc int, reserve *budget.Reserve) (*CompressedUnit, error) {
	required := salience.FilterByWeight(salience.Entities(src), e.cfg.EntityWeightThreshold)

	target := alloc
	expanded := false
	var lastErr error
	attempts := 0

	for attempts < e.cfg.MaxAttempts {
		attempts++

		resp, err := e.call(ctx, Request{
			UnitID:           unitID,
			Text:             src,
			TargetChars:      target,
			RequiredEntities: required,
		})
		if err != nil {
			lastErr = err
			if IsRetryable(err) && attempts < e.cfg.MaxAttempts {
				select {
				case <-time.After(Backoff(attempts - 1)):
					continue
				case <-ctx.Done():
					lastErr = ctx.Err()
				}
			}
			break
		}

		text := fitToBudget(resp.Text, target)
		preserved, missing := checkPreservation(text, required)

		if float64(len(missing)) <= e.cfg.PreservationTolerance*float64(max(1, len(required))) {
			return &CompressedUnit{
				UnitID:    unitID,
				Text:      text,
				Flag:      FlagOK,
				Preserved: preserved,
				Missing:   missing,
				Attempts:  attempts,
			}, nil
		}

		// Too many entities lost: retry once with a budget expanded
		// from the shared reserve, then give up on the backend.
		if !expanded && attempts < e.cfg.MaxAttempts {
			extra := int(float64(alloc) * e.cfg.ExpandFactor)
			if reserve != nil && reserve.Claim(extra) {
				e.log.Warn("entity preservation failed, retrying with expanded budget",
					"unit_id", unitID, "missing", len(missing), "extra_chars", extra)
				target = alloc + extra
				expanded = true
				continue
			}
		}

		fallback := Truncate(src, target)
		preserved, missing = checkPreservation(fallback, required)
		return &CompressedUnit{
			UnitID:    unitID,
			Text:      fallback,
			Flag:      FlagPreservationFailed,
			Preserved: preserved,
			Missing:   missing,
			Attempts:  attempts,
		}, nil
	}

	// Backend unreachable or malformed after retries: degrade to a
	// verbatim truncation so the pipeline completes.
	fallback := Truncate(src, target)
	preserved, missing := checkPreservation(fallback, required)
	return &CompressedUnit{
		UnitID:    unitID,
		Text:      fallback,
		Flag:      FlagTruncated,
		Preserved: preserved,
		Missing:   missing,
		Attempts:  attempts,
	}, &CompressionError{UnitID: unitID, Err: lastErr}
}

// CompressCaption condenses a table/figure caption like a small unit,
// without reserve borrowing. Captions already under budget pass through.
func (e *Engine) CompressCaption(ctx context.Context, unitID, caption string, limit int) string {
	if len([]rune(caption)) <= limit {
		return caption
	}
	cu, err := e.CompressUnit(ctx, unitID, caption, limit, nil)
	if err != nil || cu.Text == "" {
		return Truncate(caption, limit)
	}
	return cu.Text
}

func (e *Engine) call(ctx context.Context, req Request) (*Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.backend.Compress(callCtx, req)
	if e.stats != nil {
		e.stats.Record(time.Since(start).Milliseconds())
	}
	if err != nil {
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, &RetryableError{Message: "backend returned empty output"}
	}
	return resp, nil
}

// checkPreservation scans the output for each required entity.
func checkPreservation(text string, required []string) (preserved, missing []string) {
	for _, ent := range required {
		if strings.Contains(text, ent) {
			preserved = append(preserved, ent)
		} else {
			missing = append(missing, ent)
		}
	}
	return preserved, missing
}

// fitToBudget hard-caps backend output that overshot the target.
func fitToBudget(text string, target int) string {
	// Small overshoot is tolerated; gross overshoot is cut.
	if len([]rune(text)) <= target+target/10 {
		return text
	}
	return Truncate(text, target)
}
