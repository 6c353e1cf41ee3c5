package storage

import "github.com/GoCodeAlone/split-go-core/dto"

// ImpressionQueue is a count-bounded FIFO of impressions awaiting a
// flush to the backend. Capacity is measured in number of impressions,
// not bytes.
type ImpressionQueue struct {
	q *boundedQueue[dto.Impression]
}

// NewImpressionQueue builds an ImpressionQueue holding up to capacity
// impressions. emitter may be nil.
func NewImpressionQueue(capacity int, emitter EventEmitter) *ImpressionQueue {
	return &ImpressionQueue{
		q: newBoundedQueue[dto.Impression](capacity, func(dto.Impression) int { return 1 },
			emitter, EventTypeQueueFull, "split-impression-queue"),
	}
}

// Put enqueues impressions in order, returning true iff all were
// accepted; once capacity impressions are queued, further impressions
// are dropped and the queue-full event fires once per overflow
// transition.
func (q *ImpressionQueue) Put(impressions ...dto.Impression) bool {
	return q.q.put(impressions)
}

// PopMany removes and returns up to n impressions in FIFO order.
func (q *ImpressionQueue) PopMany(n int) []dto.Impression {
	return q.q.popMany(n)
}

// Count returns the number of queued impressions.
func (q *ImpressionQueue) Count() int {
	return q.q.count()
}
