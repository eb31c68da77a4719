package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JakeFAU/lockss-laaws/internal/jobs"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan jobs.QueueItem, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	item := jobs.QueueItem{JobID: "job-1", AuID: "au", Type: store.JobDelete}
	if err := q.Enqueue(context.Background(), item); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		if got != item {
			t.Fatalf("expected %+v, got %+v", item, got)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return job")
	}
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewQueue(1).Dequeue(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected dequeue cancel error, got %v", err)
	}

	full := NewQueue(1)
	if err := full.Enqueue(context.Background(), jobs.QueueItem{JobID: "primed"}); err != nil {
		t.Fatalf("failed to prime queue: %v", err)
	}
	if full.Len() != 1 {
		t.Fatalf("expected Len 1, got %d", full.Len())
	}
	if err := full.Enqueue(ctx, jobs.QueueItem{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected enqueue cancel error, got %v", err)
	}
}

func TestQueueEnqueueFullFailsFast(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	if err := q.Enqueue(context.Background(), jobs.QueueItem{JobID: "primed"}); err != nil {
		t.Fatalf("failed to prime queue: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(context.Background(), jobs.QueueItem{JobID: "overflow"}) }()
	select {
	case err := <-done:
		if !errors.Is(err, store.ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue on a full queue blocked")
	}
	if q.Len() != 1 {
		t.Fatalf("expected Len 1, got %d", q.Len())
	}
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	if err := q.Enqueue(context.Background(), jobs.QueueItem{JobID: "left"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	q.Close()
	q.Close()

	if err := q.Enqueue(context.Background(), jobs.QueueItem{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on enqueue, got %v", err)
	}
	item, err := q.Dequeue(context.Background())
	if err != nil || item.JobID != "left" {
		t.Fatalf("expected to drain queued item, got %+v err=%v", item, err)
	}
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
