package sync

import (
	"context"

	"github.com/GoCodeAlone/split-go-core/internal/logging"
	"github.com/GoCodeAlone/split-go-core/storage"
	"github.com/GoCodeAlone/split-go-core/transport"
)

// ImpressionSynchronizer drains the impression queue in batches and
// POSTs them to the backend. On HTTP failure the batch is dropped
// (at-most-once delivery) rather than retried: impressions
// are diagnostic, not transactional, so a dropped batch is logged and
// the next tick simply drains whatever has accumulated since.
type ImpressionSynchronizer struct {
	backend   transport.Backend
	queue     *storage.ImpressionQueue
	batchSize int
	logger    logging.Logger
}

// NewImpressionSynchronizer builds an ImpressionSynchronizer popping up
// to batchSize impressions per Synchronize call.
func NewImpressionSynchronizer(backend transport.Backend, queue *storage.ImpressionQueue, batchSize int, logger logging.Logger) *ImpressionSynchronizer {
	if batchSize <= 0 {
		batchSize = 5000
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &ImpressionSynchronizer{
		backend:   backend,
		queue:     queue,
		batchSize: batchSize,
		logger:    logging.WithOperation(logger, "sync.ImpressionSynchronizer.Synchronize"),
	}
}

// Synchronize pops and flushes one batch. It returns nil even on a
// flush failure — the batch is already gone from the queue and the loss
// is logged, keeping delivery at-most-once.
func (s *ImpressionSynchronizer) Synchronize(ctx context.Context) error {
	batch := s.queue.PopMany(s.batchSize)
	if len(batch) == 0 {
		return nil
	}
	if err := s.backend.PostImpressions(ctx, batch); err != nil {
		s.logger.Warn("dropped impression batch", "count", len(batch), "error", err)
	}
	return nil
}

// Flush drains and posts every impression currently queued, used for a
// best-effort final flush on shutdown.
func (s *ImpressionSynchronizer) Flush(ctx context.Context) {
	for s.queue.Count() > 0 {
		if err := s.Synchronize(ctx); err != nil {
			return
		}
	}
}
