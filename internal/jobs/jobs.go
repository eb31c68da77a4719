// Package jobs schedules metadata update jobs and defines the contracts the
// worker pool runs them against. Jobs move queued -> running -> done|failed
// while clients list them with cursor paging, so the job list grows and
// shrinks underneath open cursors.
package jobs

import (
	"context"
	"time"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// QueueItem is the unit of work handed to workers.
type QueueItem struct {
	JobID string
	AuID  string
	Type  store.JobType
}

// Enqueuer accepts work for the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, item QueueItem) error
}

// Queue hands queued work to workers.
type Queue interface {
	Enqueuer
	Dequeue(ctx context.Context) (QueueItem, error)
}

// JobStore persists job records.
type JobStore interface {
	CreateJob(ctx context.Context, job store.Job) (store.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status store.JobStatus, msg string, at time.Time) error
	GetJob(ctx context.Context, jobID string) (store.Job, error)
	ListJobs(ctx context.Context) ([]store.Job, error)
	DeleteJob(ctx context.Context, jobID string) (store.Job, error)
	DeleteAllJobs(ctx context.Context) (int, error)
}

// Publisher emits job lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Extractor performs the work of a job and returns a status message.
type Extractor interface {
	Run(ctx context.Context, item QueueItem) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates job identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Event is the payload published on every job state change.
type Event struct {
	JobID     string          `json:"job_id"`
	AuID      string          `json:"au_id"`
	Type      store.JobType   `json:"type"`
	Status    store.JobStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// NewEvent builds the event for item entering status at t.
func NewEvent(item QueueItem, status store.JobStatus, msg string, t time.Time) Event {
	return Event{
		JobID:     item.JobID,
		AuID:      item.AuID,
		Type:      item.Type,
		Status:    status,
		Message:   msg,
		Timestamp: t.UTC().Format(time.RFC3339Nano),
	}
}

// Attributes exposes routing fields as message attributes.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"job_id": e.JobID,
		"type":   string(e.Type),
		"status": string(e.Status),
	}
}
