package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type countingProcessor struct {
	mu   sync.Mutex
	ids  []uuid.UUID
	done chan struct{}
	want int
}

func (p *countingProcessor) Process(ctx context.Context, documentID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, documentID)
	if len(p.ids) == p.want {
		close(p.done)
	}
	return nil
}

func TestQueueProcessesAllJobs(t *testing.T) {
	proc := &countingProcessor{done: make(chan struct{}), want: 5}
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(8))

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	select {
	case <-proc.done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs not processed in time")
	}
	q.Shutdown(context.Background())
}

func TestShutdownDrainsQueue(t *testing.T) {
	proc := &countingProcessor{done: make(chan struct{}), want: 3}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(8))

	for i := 0; i < 3; i++ {
		_ = q.Enqueue(context.Background(), Job{DocumentID: uuid.New()})
	}
	q.Shutdown(context.Background())

	proc.mu.Lock()
	got := len(proc.ids)
	proc.mu.Unlock()
	if got != 3 {
		t.Fatalf("processed %d jobs before shutdown returned, want 3", got)
	}
}

func TestEnqueueAfterShutdownIsNoop(t *testing.T) {
	proc := &countingProcessor{done: make(chan struct{}), want: 1}
	q := NewProcessorQueue(proc, nil, WithWorkers(1))
	q.Shutdown(context.Background())

	if err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}); err != nil {
		t.Fatalf("Enqueue after shutdown: %v", err)
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.ids) != 0 {
		t.Fatal("job processed after shutdown")
	}
}

type listerFunc func(ctx context.Context, limit int) ([]uuid.UUID, error)

func (f listerFunc) ListPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return f(ctx, limit)
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func TestPollerDoesNotReenqueueInflightDocuments(t *testing.T) {
	id := uuid.New()
	rq := &recordingQueue{}
	p := NewPoller(listerFunc(func(ctx context.Context, limit int) ([]uuid.UUID, error) {
		return []uuid.UUID{id}, nil
	}), rq, time.Second, nil)

	p.sweep(context.Background())
	p.sweep(context.Background())

	if got := rq.count(); got != 1 {
		t.Fatalf("document enqueued %d times across sweeps, want 1", got)
	}
}

func TestPollerReenqueuesAfterDocumentLeftAndReturned(t *testing.T) {
	id := uuid.New()
	pending := []uuid.UUID{id}
	rq := &recordingQueue{}
	p := NewPoller(listerFunc(func(ctx context.Context, limit int) ([]uuid.UUID, error) {
		return pending, nil
	}), rq, time.Second, nil)

	p.sweep(context.Background())
	pending = nil // document claimed by a worker
	p.sweep(context.Background())
	pending = []uuid.UUID{id} // hypothetical re-insert under the same id
	p.sweep(context.Background())

	if got := rq.count(); got != 2 {
		t.Fatalf("enqueue count = %d, want 2", got)
	}
}
