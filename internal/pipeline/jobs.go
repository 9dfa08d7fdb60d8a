package pipeline

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a build job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusRendering  JobStatus = "rendering"
	StatusPaginating JobStatus = "paginating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single book build.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	Title string `json:"title"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	dir    string // uploaded book directory, removed with the job
	html   string
	errors []string
}

// Progress tracks build progress.
type Progress struct {
	TotalChapters    int      `json:"total_chapters"`
	ChaptersRendered int      `json:"chapters_rendered"`
	Pages            int      `json:"pages"`
	Errors           []string `json:"errors"`
}

// NewJob creates a queued job for the book in dir.
func NewJob(dir string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		dir:       dir,
	}
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

// Completed returns a finished job built from the same content, if any.
func (s *JobStore) Completed(hash string) *Job {
	if hash == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		job.mu.Lock()
		ok := job.ContentHash == hash && job.Status == StatusCompleted
		job.mu.Unlock()
		if ok {
			return job
		}
	}
	return nil
}

// Cleanup removes expired jobs and their upload directories.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		dir := job.dir
		job.mu.Unlock()
		if !expired {
			continue
		}
		if dir != "" {
			_ = os.RemoveAll(dir)
		}
		delete(s.jobs, id)
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
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

// SetTotalChapters records the chapter count.
func (j *Job) SetTotalChapters(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChapters = n
	j.UpdatedAt = time.Now()
}

// IncrChaptersRendered atomically increments rendered chapters.
func (j *Job) IncrChaptersRendered() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChaptersRendered++
	j.UpdatedAt = time.Now()
}

// SetTitle records the book title once known.
func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
}

// SetResult stores the finished document and its page count.
func (j *Job) SetResult(html string, pages int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.html = html
	j.Progress.Pages = pages
	j.UpdatedAt = time.Now()
}

// HTML returns the finished document once the job completed.
func (j *Job) HTML() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.html, j.Status == StatusCompleted
}

// Dir returns the uploaded book directory.
func (j *Job) Dir() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dir
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Title       string    `json:"title"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:     j.ID,
		Title:  j.Title,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			TotalChapters:    j.Progress.TotalChapters,
			ChaptersRendered: j.Progress.ChaptersRendered,
			Pages:            j.Progress.Pages,
			Errors:           append([]string{}, errs...),
		},
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
