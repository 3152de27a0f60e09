package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/sumzero/internal/arc"
)

// JobStatus represents the state of a summary job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// JobOptions are the per-job summarization settings.
type JobOptions struct {
	HighCapacity bool    `json:"high_capacity"`
	Temperature  float64 `json:"temperature"`
	DryRun       bool    `json:"dry_run"`
	Strict       bool    `json:"strict"`
}

// Job tracks the state of one summary request over an uploaded arc.
type Job struct {
	mu sync.Mutex

	ID       string     `json:"job_id"`
	ArcID    string     `json:"arc_id"`
	Arc      int        `json:"arc"`
	Filename string     `json:"filename"`
	Chapters []string   `json:"chapters"`
	Options  JobOptions `json:"options"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	OutputDir string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	doc     *arc.Document
	results []ChapterResult
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalBlocks   int      `json:"total_blocks"`
	BlocksDone    int      `json:"blocks_done"`
	BlocksSkipped int      `json:"blocks_skipped"`
	BlocksCached  int      `json:"blocks_cached"`
	ChaptersDone  int      `json:"chapters_done"`
	Errors        []string `json:"errors"`
}

// NewJob creates a queued job over a parsed arc.
func NewJob(arcID, filename string, doc *arc.Document, chapters []string, opts JobOptions) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		ArcID:     arcID,
		Arc:       doc.Arc,
		Filename:  filename,
		Chapters:  SortChapterIDs(chapters),
		Options:   opts,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		doc:       doc,
	}
}

// Document returns the arc the job summarizes.
func (j *Job) Document() *arc.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doc
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

// Cleanup removes expired jobs and returns them so their artifacts can be
// removed.
func (s *JobStore) Cleanup() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var expired []*Job
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
			expired = append(expired, job)
		}
	}
	return expired
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

// AddTotalBlocks grows the number of blocks the job will process.
func (j *Job) AddTotalBlocks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalBlocks += n
	j.UpdatedAt = time.Now()
}

// IncrBlocksDone records a written block.
func (j *Job) IncrBlocksDone(cached bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.BlocksDone++
	if cached {
		j.Progress.BlocksCached++
	}
	j.UpdatedAt = time.Now()
}

// IncrBlocksSkipped records a block left out of its chapter.
func (j *Job) IncrBlocksSkipped() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.BlocksSkipped++
	j.UpdatedAt = time.Now()
}

// FinishChapter records a chapter outcome.
func (j *Job) FinishChapter(res ChapterResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, res)
	j.Progress.ChaptersDone++
	j.UpdatedAt = time.Now()
}

// ChapterStatus is the JSON view of one finished chapter.
type ChapterStatus struct {
	ChapterID string `json:"chapter_id"`
	Blocks    int    `json:"blocks"`
	Written   int    `json:"written"`
	Skipped   int    `json:"skipped"`
	Cached    int    `json:"cached"`
	Error     string `json:"error,omitempty"`
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string          `json:"job_id"`
	ArcID     string          `json:"arc_id"`
	Arc       int             `json:"arc"`
	Filename  string          `json:"filename"`
	Chapters  []string        `json:"chapters"`
	Options   JobOptions      `json:"options"`
	Status    JobStatus       `json:"status"`
	Phase     string          `json:"phase"`
	Progress  Progress        `json:"progress"`
	Results   []ChapterStatus `json:"results"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	results := make([]ChapterStatus, 0, len(j.results))
	for _, r := range j.results {
		cs := ChapterStatus{
			ChapterID: r.ChapterID,
			Blocks:    r.Blocks,
			Written:   r.Written,
			Skipped:   r.Skipped,
			Cached:    r.Cached,
		}
		if r.Err != nil {
			cs.Error = r.Err.Error()
		}
		results = append(results, cs)
	}
	progress := j.Progress
	progress.Errors = append([]string{}, errs...)
	return JobSnapshot{
		ID:        j.ID,
		ArcID:     j.ArcID,
		Arc:       j.Arc,
		Filename:  j.Filename,
		Chapters:  append([]string{}, j.Chapters...),
		Options:   j.Options,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  progress,
		Results:   results,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
