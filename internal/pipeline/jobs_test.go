package pipeline

import (
	"testing"
	"time"

	"github.com/VishnuVamsi7/DocReporter/internal/report"
)

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "j1", Status: StatusQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store.Put(job)

	if got := store.Get("j1"); got != job {
		t.Error("expected stored job back")
	}
	if got := store.Get("missing"); got != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestJobStore_FindByHashOnlyCompleted(t *testing.T) {
	store := NewJobStore(time.Hour)
	running := &Job{ID: "j1", Status: StatusCompressing, ContentHash: "abc", UpdatedAt: time.Now()}
	store.Put(running)

	if store.FindByHash("abc") != nil {
		t.Error("running jobs must not be dedup candidates")
	}

	running.SetStatus(StatusCompleted, "done")
	if store.FindByHash("abc") != running {
		t.Error("completed job with matching hash should be found")
	}
	if store.FindByHash("other") != nil {
		t.Error("hash mismatch should return nil")
	}
}

func TestJobStore_CleanupEvictsExpired(t *testing.T) {
	store := NewJobStore(10 * time.Millisecond)
	stale := &Job{ID: "old", UpdatedAt: time.Now().Add(-time.Minute)}
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(stale)
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expired job should be evicted")
	}
	if store.Get("new") == nil {
		t.Error("fresh job should survive cleanup")
	}
}

func TestJob_StatusAndProgress(t *testing.T) {
	job := &Job{ID: "j1", Status: StatusQueued}

	job.SetStatus(StatusCompressing, "compressing")
	if job.Status != StatusCompressing || job.Phase != "compressing" {
		t.Errorf("status = %s phase = %s", job.Status, job.Phase)
	}

	job.SetPlanned(10, 2)
	job.IncrUnitCompressed(false, false)
	job.IncrUnitCompressed(true, false)
	job.IncrUnitCompressed(false, true)
	job.IncrDigested()

	snap := job.Snapshot()
	p := snap.Progress
	if p.TotalUnits != 10 || p.UnitsDropped != 2 {
		t.Errorf("planned counts = %+v", p)
	}
	if p.UnitsCompressed != 3 || p.UnitsTruncated != 1 || p.PreservationFailed != 1 {
		t.Errorf("unit counts = %+v", p)
	}
	if p.TablesDigested != 1 {
		t.Errorf("digested = %d", p.TablesDigested)
	}
}

func TestJob_SnapshotErrorsNeverNil(t *testing.T) {
	job := &Job{ID: "j1"}
	if errs := job.Snapshot().Progress.Errors; errs == nil {
		t.Error("snapshot errors must be an empty slice, not nil")
	}

	job.AddError("boom")
	if errs := job.Snapshot().Progress.Errors; len(errs) != 1 || errs[0] != "boom" {
		t.Errorf("errors = %v", errs)
	}
}

func TestJob_ResultRoundTrip(t *testing.T) {
	job := &Job{ID: "j1"}
	if job.Result() != nil {
		t.Error("result should be nil before completion")
	}
	doc := &report.Document{Title: "Done"}
	job.SetResult(doc)
	if job.Result() != doc {
		t.Error("expected stored result back")
	}
}
