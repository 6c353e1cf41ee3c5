package storage

import "errors"

// Error definitions shared across the storage types.
var (
	// ErrQueueFull names the queue-full condition. No function in this
	// package returns it: the queues' Put reports overflow as a false
	// result and through the queue-full event.
	ErrQueueFull = errors.New("storage: queue is full")

	// ErrSegmentUnknown names a lookup of a segment that does not exist.
	// No function in this package returns it: Contains reports false,
	// ChangeNumber reports -1, and SetChangeNumber is a no-op for an
	// unknown segment.
	ErrSegmentUnknown = errors.New("storage: segment not found")
)
