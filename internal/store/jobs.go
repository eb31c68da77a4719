package store

import (
	"context"
	"time"
)

// JobType names the kind of work a metadata update job performs.
type JobType string

// Metadata update job types.
const (
	JobFullExtraction        JobType = "full_extraction"
	JobIncrementalExtraction JobType = "incremental_extraction"
	JobDelete                JobType = "delete"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

// Job statuses.
const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether the job can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// Job models a metadata update job.
type Job struct {
	// ID is the job identifier handed to clients.
	ID string
	// Seq orders jobs by creation; it never repeats.
	Seq  int64
	AuID string
	Type JobType

	Status        JobStatus
	StatusMessage string

	Created time.Time
	// Started and Finished stay nil until the job reaches that state.
	Started  *time.Time
	Finished *time.Time
}

// JobManager schedules and tracks metadata update jobs.
type JobManager interface {
	// ListJobs returns a snapshot of every known job.
	ListJobs(ctx context.Context) ([]Job, error)
	// GetJob returns one job or ErrNotFound.
	GetJob(ctx context.Context, id string) (Job, error)
	// Schedule queues a job of the given type for auID. Unknown AUs yield ErrNotFound.
	Schedule(ctx context.Context, auID string, jobType JobType) (Job, error)
	// RemoveJob forgets a job and returns it, or ErrNotFound.
	RemoveJob(ctx context.Context, id string) (Job, error)
	// RemoveAllJobs forgets every job and returns how many were removed.
	RemoveAllJobs(ctx context.Context) (int, error)
}
