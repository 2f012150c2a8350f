package async

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PendingLister is the slice of the store the poller needs.
type PendingLister interface {
	ListPending(ctx context.Context, limit int) ([]uuid.UUID, error)
}

const pollBatchSize = 100

// Poller sweeps PENDING documents into the queue at a fixed interval. It is
// the recovery path for documents enqueued before a restart, and the only
// intake path for documents inserted by other writers.
type Poller struct {
	store    PendingLister
	queue    Queue
	interval time.Duration
	logger   *slog.Logger

	// inflight suppresses re-enqueueing a document the pool has not picked
	// up yet. Entries are dropped once the sweep sees the document leave
	// PENDING.
	inflight map[uuid.UUID]struct{}
}

func NewPoller(store PendingLister, queue Queue, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{
		store:    store,
		queue:    queue,
		interval: interval,
		logger:   logger,
		inflight: make(map[uuid.UUID]struct{}),
	}
}

// Run blocks until ctx is cancelled, sweeping once immediately and then on
// every tick.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	ids, err := p.store.ListPending(ctx, pollBatchSize)
	if err != nil {
		p.logger.Error("poller sweep failed", "error", err)
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	enqueued := 0
	for _, id := range ids {
		seen[id] = struct{}{}
		if _, ok := p.inflight[id]; ok {
			continue
		}
		if err := p.queue.Enqueue(ctx, Job{DocumentID: id, SubmittedAt: time.Now()}); err != nil {
			p.logger.Error("poller enqueue failed", "document_id", id, "error", err)
			continue
		}
		p.inflight[id] = struct{}{}
		enqueued++
	}

	// Anything no longer pending has been claimed (or removed); forget it.
	for id := range p.inflight {
		if _, ok := seen[id]; !ok {
			delete(p.inflight, id)
		}
	}

	if enqueued > 0 {
		p.logger.Info("poller sweep", "pending", len(ids), "enqueued", enqueued)
	}
}
