package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
	"github.com/VishnuVamsi7/DocReporter/internal/blocksource"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
)

// Worker processes report jobs from the queue.
type Worker struct {
	runner *Runner
	store  *JobStore
	log    *slog.Logger
}

func NewWorker(runner *Runner, store *JobStore, log *slog.Logger) *Worker {
	return &Worker{runner: runner, store: store, log: log}
}

// Process runs the full pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	// Phase 1: extract content blocks, unless the caller submitted them
	// directly.
	blocks := job.Blocks()
	if len(blocks) == 0 {
		job.SetStatus(StatusExtracting, "extracting_blocks")
		src, err := blocksource.ForFile(job.Filename)
		if err != nil {
			log.Error("unsupported format", "error", err)
			job.AddError(err.Error())
			job.SetStatus(StatusFailed, "extracting_blocks")
			return
		}
		blocks, err = src.Blocks(bytes.NewReader(job.FileData()), job.Filename)
		if err != nil {
			log.Error("block extraction failed", "error", err)
			job.AddError(fmt.Sprintf("extract: %s", err))
			job.SetStatus(StatusFailed, "extracting_blocks")
			return
		}
	}

	// Phase 1.5: dedup on content hash. An identical document already
	// reported on gets the existing result.
	job.ContentHash = fmt.Sprintf("%016x", block.ContentHash(blocks))
	if dup := w.store.FindByHash(job.ContentHash); dup != nil && dup.ID != job.ID {
		log.Info("duplicate document, reusing report", "existing_job_id", dup.ID)
		job.SetResult(dup.Result())
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phases 2-7 run inside the runner; hooks mirror progress onto the
	// job for status polling.
	doc, err := w.runner.Run(ctx, RunRequest{
		Title:        job.Title,
		Blocks:       blocks,
		GlobalBudget: job.GlobalBudget,
		Hooks: Hooks{
			Phase: func(name string) {
				job.SetStatus(statusForPhase(name), name)
			},
			Planned: job.SetPlanned,
			UnitDone: func(cu *compress.CompressedUnit) {
				job.IncrUnitCompressed(
					cu.Flag == compress.FlagTruncated,
					cu.Flag == compress.FlagPreservationFailed,
				)
			},
			Digested: job.IncrDigested,
		},
	})
	if err != nil {
		var serr *doctree.StructureError
		if errors.As(err, &serr) {
			log.Error("structure build failed", "page", serr.Page, "block", serr.BlockIndex, "reason", serr.Reason)
		} else {
			log.Error("pipeline failed", "error", err)
		}
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Phase)
		return
	}

	if job.Title == "" {
		job.Title = doc.Title
	}
	job.SetResult(doc)
	job.SetStatus(StatusCompleted, "done")
	log.Info("report complete",
		"units", doc.Manifest.TotalUnits,
		"compressed", doc.Manifest.Compressed,
		"dropped", doc.Manifest.Dropped,
		"truncated", doc.Manifest.Truncated)
}

func statusForPhase(name string) JobStatus {
	switch name {
	case "normalizing":
		return StatusExtracting
	case "building_structure":
		return StatusBuilding
	case "segmenting":
		return StatusSegmenting
	case "ranking":
		return StatusRanking
	case "compressing":
		return StatusCompressing
	case "assembling":
		return StatusAssembling
	}
	return StatusQueued
}
