// Package sync implements the fetch-and-apply loops that keep flag and
// segment storage fresh, and the drain loops that flush impressions,
// events, and telemetry to the backend. Each
// synchronizer fetches first, then applies against storage — storage
// locks are never held across HTTP I/O.
package sync

import (
	"errors"
	"fmt"
)

// ErrSyncFailed is surfaced after a synchronizer exhausts its retry
// budget; it does not crash the runtime, the next periodic tick simply
// retries.
var ErrSyncFailed = errors.New("sync: synchronization failed")

// InvariantError is an assertion that storage or a synchronizer's own
// bookkeeping is inconsistent. It is allowed to crash the sync worker
// that detects it, but must never reach or crash the evaluation path.
type InvariantError struct {
	Component string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("sync: invariant violated in %s: %s", e.Component, e.Detail)
}
