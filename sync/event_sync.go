package sync

import (
	"context"

	"github.com/GoCodeAlone/split-go-core/internal/logging"
	"github.com/GoCodeAlone/split-go-core/storage"
	"github.com/GoCodeAlone/split-go-core/transport"
)

// EventSynchronizer drains the (byte-bounded) event queue in batches and
// POSTs them to the backend, mirroring ImpressionSynchronizer's
// at-most-once drop-on-failure contract.
type EventSynchronizer struct {
	backend   transport.Backend
	queue     *storage.EventQueue
	batchSize int
	logger    logging.Logger
}

// NewEventSynchronizer builds an EventSynchronizer popping up to
// batchSize events per Synchronize call.
func NewEventSynchronizer(backend transport.Backend, queue *storage.EventQueue, batchSize int, logger logging.Logger) *EventSynchronizer {
	if batchSize <= 0 {
		batchSize = 5000
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &EventSynchronizer{
		backend:   backend,
		queue:     queue,
		batchSize: batchSize,
		logger:    logging.WithOperation(logger, "sync.EventSynchronizer.Synchronize"),
	}
}

// Synchronize pops and flushes one batch.
func (s *EventSynchronizer) Synchronize(ctx context.Context) error {
	batch := s.queue.PopMany(s.batchSize)
	if len(batch) == 0 {
		return nil
	}
	if err := s.backend.PostEvents(ctx, batch); err != nil {
		s.logger.Warn("dropped event batch", "count", len(batch), "error", err)
	}
	return nil
}

// Flush drains and posts every event currently queued, a best-effort
// final attempt on shutdown.
func (s *EventSynchronizer) Flush(ctx context.Context) {
	for s.queue.Count() > 0 {
		if err := s.Synchronize(ctx); err != nil {
			return
		}
	}
}
