// Package memory holds in-process implementations of the listing service's
// collaborators for development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// JobStore keeps metadata update jobs in memory.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]store.Job
	nextSeq int64
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]store.Job)}
}

// CreateJob stores job and assigns its sequence number.
func (s *JobStore) CreateJob(_ context.Context, job store.Job) (store.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return store.Job{}, fmt.Errorf("job %s already exists", job.ID)
	}
	s.nextSeq++
	job.Seq = s.nextSeq
	s.jobs[job.ID] = job
	return job, nil
}

// UpdateJobStatus moves a job to status, stamping Started and Finished.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status store.JobStatus, msg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
	}
	job.Status = status
	job.StatusMessage = msg
	if status == store.JobRunning && job.Started == nil {
		job.Started = pointerTime(at)
	}
	if status.Terminal() {
		job.Finished = pointerTime(at)
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (store.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return store.Job{}, fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
	}
	return job, nil
}

// ListJobs returns every job ordered by sequence.
func (s *JobStore) ListJobs(_ context.Context) ([]store.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := slices.Collect(maps.Values(s.jobs))
	slices.SortFunc(jobs, func(a, b store.Job) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	return jobs, nil
}

// DeleteJob removes a job and returns it.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) (store.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return store.Job{}, fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
	}
	delete(s.jobs, jobID)
	return job, nil
}

// DeleteAllJobs removes every job and returns how many there were.
func (s *JobStore) DeleteAllJobs(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.jobs)
	clear(s.jobs)
	return n, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
