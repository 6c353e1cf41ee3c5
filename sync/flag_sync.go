package sync

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/split-go-core/dto"
	"github.com/GoCodeAlone/split-go-core/internal/backoff"
	"github.com/GoCodeAlone/split-go-core/internal/logging"
	"github.com/GoCodeAlone/split-go-core/storage"
	"github.com/GoCodeAlone/split-go-core/transport"
)

// FlagSynchronizer fetches splitChanges pages since the stored change
// number and applies them to storage.FlagStorage.
type FlagSynchronizer struct {
	backend transport.Backend
	storage *storage.FlagStorage
	policy  backoff.Policy
	logger  logging.Logger
}

// NewFlagSynchronizer builds a FlagSynchronizer. A nil logger defaults
// to a no-op logger; policy defaults to backoff.DefaultPolicy() bounded
// to 3 retries (4 attempts in all) per fetch.
func NewFlagSynchronizer(backend transport.Backend, store *storage.FlagStorage, logger logging.Logger) *FlagSynchronizer {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &FlagSynchronizer{
		backend: backend,
		storage: store,
		policy:  backoff.DefaultPolicy().WithMaxRetries(3),
		logger:  logging.WithOperation(logger, "sync.FlagSynchronizer.Synchronize"),
	}
}

// WithPolicy returns a copy of s using policy for its retry budget.
func (s *FlagSynchronizer) WithPolicy(policy backoff.Policy) *FlagSynchronizer {
	clone := *s
	clone.policy = policy
	return &clone
}

// Synchronize fetches and applies every pending splitChanges page,
// looping until since == till, retrying transient failures per s.policy
// and surfacing ErrSyncFailed (wrapping the underlying cause) once the
// retry budget is exhausted.
func (s *FlagSynchronizer) Synchronize(ctx context.Context) error {
	for {
		since := s.storage.ChangeNumber()
		var page transport.ChangesResponse[dto.Flag]
		err := backoff.Run(ctx, s.policy, transport.IsRetryable, func(ctx context.Context) error {
			var fetchErr error
			page, fetchErr = s.backend.SplitChanges(ctx, since)
			return fetchErr
		})
		if err != nil {
			s.logger.Warn("flag sync failed", "since", since, "error", err)
			return fmt.Errorf("%w: %w", ErrSyncFailed, err)
		}

		for _, flag := range page.Items {
			f := flag
			if f.Status == dto.StatusActive {
				s.storage.Put(&f)
			} else {
				s.storage.Remove(f.Name)
			}
		}
		// Advance the cursor from the page itself, never from flag
		// contents: a page of archived flags must still move past
		// `since`, or the next iteration would re-request it forever.
		s.storage.SetChangeNumber(page.Till)

		if page.Since == page.Till || len(page.Items) == 0 {
			return nil
		}
	}
}
