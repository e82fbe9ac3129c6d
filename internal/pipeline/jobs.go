package pipeline

import (
	"sync"
	"time"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
	"github.com/VishnuVamsi7/DocReporter/internal/report"
)

// JobStatus represents the state of a report generation job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusExtracting  JobStatus = "extracting_blocks"
	StatusBuilding    JobStatus = "building_structure"
	StatusSegmenting  JobStatus = "segmenting"
	StatusRanking     JobStatus = "ranking"
	StatusCompressing JobStatus = "compressing"
	StatusAssembling  JobStatus = "assembling"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusDupSkipped  JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single report generation.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Per-job budget override, zero means the configured default.
	GlobalBudget int `json:"global_budget,omitempty"`

	// Internal: not serialized.
	fileData []byte
	blocks   []block.ContentBlock
	result   *report.Document
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalUnits         int      `json:"total_units"`
	UnitsCompressed    int      `json:"units_compressed"`
	UnitsDropped       int      `json:"units_dropped"`
	UnitsTruncated     int      `json:"units_truncated"`
	PreservationFailed int      `json:"preservation_failed"`
	TablesDigested     int      `json:"tables_digested"`
	Errors             []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// FindByHash returns a completed job with the given content hash, if any.
func (s *JobStore) FindByHash(hash string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ContentHash == hash && job.Status == StatusCompleted {
			return job
		}
	}
	return nil
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetPlanned records the unit counts from the allocation plan.
func (j *Job) SetPlanned(total, dropped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalUnits = total
	j.Progress.UnitsDropped = dropped
	j.UpdatedAt = time.Now()
}

// IncrUnitCompressed counts one compressed unit, by quality flag.
func (j *Job) IncrUnitCompressed(truncated, preservationFailed bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.UnitsCompressed++
	if truncated {
		j.Progress.UnitsTruncated++
	}
	if preservationFailed {
		j.Progress.PreservationFailed++
	}
	j.UpdatedAt = time.Now()
}

// IncrDigested counts one digested table or figure.
func (j *Job) IncrDigested() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TablesDigested++
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetBlocks sets pre-extracted content blocks, bypassing file parsing.
func (j *Job) SetBlocks(blocks []block.ContentBlock) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.blocks = blocks
}

// Blocks returns pre-extracted content blocks, if any.
func (j *Job) Blocks() []block.ContentBlock {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.blocks
}

// SetResult stores the finished report.
func (j *Job) SetResult(doc *report.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = doc
	j.UpdatedAt = time.Now()
}

// Result returns the finished report, or nil while the job is running.
func (j *Job) Result() *report.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:       j.ID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Title:    j.Title,
		Progress: p,
	}
}
