// Package worker implements the metadata update job execution loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lockss-laaws/internal/jobs"
	"github.com/JakeFAU/lockss-laaws/internal/metrics"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// StatusUpdater records job state transitions.
type StatusUpdater interface {
	UpdateJobStatus(ctx context.Context, jobID string, status store.JobStatus, msg string, at time.Time) error
}

// Config controls Worker behavior.
type Config struct {
	// Topic receives job lifecycle events. Empty disables publishing.
	Topic string
}

// Worker consumes queue items and runs them through the extractor.
type Worker struct {
	queue     jobs.Queue
	jobStore  StatusUpdater
	extractor jobs.Extractor
	publisher jobs.Publisher
	clock     jobs.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue jobs.Queue,
	jobStore StatusUpdater,
	extractor jobs.Extractor,
	publisher jobs.Publisher,
	clock jobs.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		jobStore:  jobStore,
		extractor: extractor,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item jobs.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if !w.transition(ctx, item, store.JobRunning, "") {
		return
	}

	status, msg := w.execute(ctx, item)
	w.transition(ctx, item, status, msg)
}

func (w *Worker) execute(ctx context.Context, item jobs.QueueItem) (store.JobStatus, string) {
	if w.extractor == nil {
		w.logger.Error("no extractor configured", zap.String("job_id", item.JobID))
		return store.JobFailed, "no extractor configured"
	}
	msg, err := w.extractor.Run(ctx, item)
	if err != nil {
		w.logger.Error("job failed",
			zap.String("job_id", item.JobID),
			zap.String("au_id", item.AuID),
			zap.Error(err),
		)
		return store.JobFailed, err.Error()
	}
	w.logger.Info("job finished",
		zap.String("job_id", item.JobID),
		zap.String("au_id", item.AuID),
		zap.String("message", msg),
	)
	return store.JobDone, msg
}

// transition records status and reports whether the job is still tracked.
// Jobs removed while queued or running are skipped silently.
func (w *Worker) transition(ctx context.Context, item jobs.QueueItem, status store.JobStatus, msg string) bool {
	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, status, msg, w.clock.Now()); err != nil {
		if jobs.IsNotFound(err) {
			w.logger.Debug("job removed before update", zap.String("job_id", item.JobID), zap.String("status", string(status)))
		} else {
			w.logger.Error("update job status failed", zap.String("job_id", item.JobID), zap.Error(err))
		}
		return false
	}
	metrics.ObserveJob(string(status))
	if err := w.publishEvent(ctx, item, status, msg); err != nil {
		w.logger.Warn("publish job event failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
	return true
}

func (w *Worker) publishEvent(ctx context.Context, item jobs.QueueItem, status store.JobStatus, msg string) error {
	if w.cfg.Topic == "" || w.publisher == nil {
		return nil
	}
	evt := jobs.NewEvent(item, status, msg, w.clock.Now())
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, evt); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
