// internal/api/job/store.go
package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/pairdash/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Job represents an async job.
type Job struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    Status      `json:"status"`
	Result    any         `json:"result,omitempty"`
	Error     *core.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Done reports whether the job has finished.
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// Recorder tracks how many jobs are in flight.
type Recorder interface {
	SetJobsActive(jobType string, count int)
}

// Store manages async jobs.
type Store struct {
	jobs    map[string]*Job
	order   []string // Track insertion order for eviction
	maxSize int
	ttl     time.Duration
	mu      sync.RWMutex
	now     func() time.Time
	metrics Recorder
	wg      sync.WaitGroup
}

// NewStore creates a new job store. Finished jobs older than ttl are pruned
// on the next Create; a zero ttl keeps them until evicted by size.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetRecorder attaches a metrics recorder.
func (s *Store) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = r
}

// Create creates a new job and returns it.
func (s *Store) Create(jobType string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()

	now := s.now()
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Evict oldest if at capacity
	if len(s.jobs) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.jobs, oldest)
		s.order = s.order[1:]
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)

	jobCopy := *job
	return &jobCopy
}

// Get retrieves a job by ID.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, notFound(id)
	}

	// Return copy to prevent race conditions
	jobCopy := *job
	return &jobCopy, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return notFound(id)
	}

	fn(job)
	job.UpdatedAt = s.now()
	s.recordLocked(job.Type)
	return nil
}

// List returns all jobs, oldest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, *job)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Run creates a job of jobType and executes fn in the background. ctx is
// passed to fn unchanged, so callers detach it from the request first.
func (s *Store) Run(ctx context.Context, jobType string, fn func(ctx context.Context) (any, error)) *Job {
	job := s.Create(jobType)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		_ = s.Update(job.ID, func(j *Job) { j.Status = StatusRunning })
		result, err := fn(ctx)
		_ = s.Update(job.ID, func(j *Job) {
			j.Result = result
			if err != nil {
				j.Status = StatusFailed
				j.Error = asCoreError(err)
				return
			}
			j.Status = StatusComplete
		})
	}()

	return job
}

// Wait blocks until every job started with Run has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) pruneLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	kept := s.order[:0]
	for _, id := range s.order {
		job := s.jobs[id]
		if job.Done() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *Store) recordLocked(jobType string) {
	if s.metrics == nil {
		return
	}
	active := 0
	for _, job := range s.jobs {
		if job.Type == jobType && !job.Done() {
			active++
		}
	}
	s.metrics.SetJobsActive(jobType, active)
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return &core.Error{Code: "INTERNAL_ERROR", Message: err.Error()}
}

func notFound(id string) error {
	return core.WrapError(core.ErrNotFound, fmt.Errorf("job %q", id))
}
