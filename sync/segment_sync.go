package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/split-go-core/internal/backoff"
	"github.com/GoCodeAlone/split-go-core/internal/logging"
	"github.com/GoCodeAlone/split-go-core/storage"
	"github.com/GoCodeAlone/split-go-core/transport"
)

// SegmentSynchronizer fetches segmentChanges pages per segment name and
// applies the deltas to storage.SegmentStorage. Work for distinct
// segment names fans out across a bounded worker pool (default
// parallelism 10): a buffered name channel drained by poolSize
// goroutines (fewer when there are fewer names), one fetch loop per
// segment name.
type SegmentSynchronizer struct {
	backend transport.Backend
	storage *storage.SegmentStorage
	policy  backoff.Policy
	logger  logging.Logger

	poolSize int
}

// NewSegmentSynchronizer builds a SegmentSynchronizer with the given
// worker-pool size (10 when poolSize is unset).
func NewSegmentSynchronizer(backend transport.Backend, store *storage.SegmentStorage, poolSize int, logger logging.Logger) *SegmentSynchronizer {
	if poolSize <= 0 {
		poolSize = 10
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &SegmentSynchronizer{
		backend:  backend,
		storage:  store,
		policy:   backoff.DefaultPolicy().WithMaxRetries(3),
		logger:   logging.WithOperation(logger, "sync.SegmentSynchronizer.SynchronizeAll"),
		poolSize: poolSize,
	}
}

// SynchronizeAll fans out Synchronize(name) for every name across the
// worker pool and returns the first error encountered (if any), after
// every worker has finished its assigned names.
func (s *SegmentSynchronizer) SynchronizeAll(ctx context.Context, names []string) error {
	jobs := make(chan string, len(names))
	for _, n := range names {
		jobs <- n
	}
	close(jobs)

	workers := s.poolSize
	if workers > len(names) {
		workers = len(names)
	}
	if workers == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				if err := s.Synchronize(ctx, name); err != nil {
					errOnce.Do(func() { firstErr = err })
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// Synchronize fetches and applies every pending segmentChanges page for
// name, looping until since == till.
func (s *SegmentSynchronizer) Synchronize(ctx context.Context, name string) error {
	for {
		since := s.storage.ChangeNumber(name)
		var page transport.SegmentChangesResult
		err := backoff.Run(ctx, s.policy, transport.IsRetryable, func(ctx context.Context) error {
			var fetchErr error
			page, fetchErr = s.backend.SegmentChanges(ctx, name, since)
			return fetchErr
		})
		if err != nil {
			s.logger.Warn("segment sync failed", "segment", name, "since", since, "error", err)
			return fmt.Errorf("%w: segment %s: %v", ErrSyncFailed, name, err)
		}

		s.storage.Update(name, page.Added, page.Removed, page.Till)

		if page.Since == page.Till {
			return nil
		}
	}
}
