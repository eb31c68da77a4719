package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/lockss-laaws/internal/metrics"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// ManagerConfig controls Manager behavior.
type ManagerConfig struct {
	// Topic receives job lifecycle events. Empty disables publishing.
	Topic string
}

// Manager implements store.JobManager on top of a JobStore and a work queue.
type Manager struct {
	jobs      JobStore
	queue     Enqueuer
	catalog   store.AuCatalog
	ids       IDGenerator
	clock     Clock
	publisher Publisher
	cfg       ManagerConfig
	logger    *zap.Logger
}

var _ store.JobManager = (*Manager)(nil)

// NewManager constructs a Manager. publisher may be nil.
func NewManager(
	jobs JobStore,
	queue Enqueuer,
	catalog store.AuCatalog,
	ids IDGenerator,
	clock Clock,
	publisher Publisher,
	cfg ManagerConfig,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		jobs:      jobs,
		queue:     queue,
		catalog:   catalog,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.Named("jobs"),
	}
}

// ListJobs returns every known job.
func (m *Manager) ListJobs(ctx context.Context) ([]store.Job, error) {
	jobs, err := m.jobs.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// GetJob returns one job.
func (m *Manager) GetJob(ctx context.Context, id string) (store.Job, error) {
	job, err := m.jobs.GetJob(ctx, id)
	if err != nil {
		return store.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Schedule records a queued job for auID and hands it to the worker pool.
func (m *Manager) Schedule(ctx context.Context, auID string, jobType store.JobType) (store.Job, error) {
	exists, err := m.catalog.AuExists(ctx, auID)
	if err != nil {
		return store.Job{}, fmt.Errorf("lookup au: %w", err)
	}
	if !exists {
		return store.Job{}, fmt.Errorf("au %q: %w", auID, store.ErrNotFound)
	}

	id, err := m.ids.NewID()
	if err != nil {
		return store.Job{}, fmt.Errorf("job id: %w", err)
	}
	job, err := m.jobs.CreateJob(ctx, store.Job{
		ID:      id,
		AuID:    auID,
		Type:    jobType,
		Status:  store.JobQueued,
		Created: m.clock.Now(),
	})
	if err != nil {
		return store.Job{}, fmt.Errorf("create job: %w", err)
	}

	item := QueueItem{JobID: job.ID, AuID: auID, Type: jobType}
	if err := m.queue.Enqueue(ctx, item); err != nil {
		msg := "enqueue failed"
		if uerr := m.jobs.UpdateJobStatus(ctx, job.ID, store.JobFailed, msg, m.clock.Now()); uerr != nil {
			m.logger.Error("fail job status update", zap.String("job_id", job.ID), zap.Error(uerr))
		}
		metrics.ObserveJob(string(store.JobFailed))
		return store.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	metrics.ObserveJob(string(store.JobQueued))
	m.publish(ctx, item, store.JobQueued, "")
	m.logger.Info("job scheduled",
		zap.String("job_id", job.ID),
		zap.String("au_id", auID),
		zap.String("type", string(jobType)),
	)
	return job, nil
}

// RemoveJob forgets one job. A running job keeps running; its final status
// update is dropped.
func (m *Manager) RemoveJob(ctx context.Context, id string) (store.Job, error) {
	job, err := m.jobs.DeleteJob(ctx, id)
	if err != nil {
		return store.Job{}, fmt.Errorf("remove job: %w", err)
	}
	m.logger.Info("job removed", zap.String("job_id", id))
	return job, nil
}

// RemoveAllJobs forgets every job.
func (m *Manager) RemoveAllJobs(ctx context.Context) (int, error) {
	n, err := m.jobs.DeleteAllJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("remove all jobs: %w", err)
	}
	m.logger.Info("jobs removed", zap.Int("count", n))
	return n, nil
}

func (m *Manager) publish(ctx context.Context, item QueueItem, status store.JobStatus, msg string) {
	if m.cfg.Topic == "" || m.publisher == nil {
		return
	}
	evt := NewEvent(item, status, msg, m.clock.Now())
	if _, err := m.publisher.Publish(ctx, m.cfg.Topic, evt); err != nil {
		m.logger.Warn("publish job event failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
}

// IsNotFound reports whether err means the job or AU is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
