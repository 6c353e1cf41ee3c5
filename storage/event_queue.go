package storage

import "github.com/GoCodeAlone/split-go-core/dto"

// EventQueue is a byte-bounded FIFO of track() events awaiting a flush
// to the backend. Capacity is measured as the sum of Event.Size()
// across queued events, not a count of events.
type EventQueue struct {
	q *boundedQueue[dto.Event]
}

// NewEventQueue builds an EventQueue holding up to maxBytes of
// aggregate event size. emitter may be nil.
func NewEventQueue(maxBytes int, emitter EventEmitter) *EventQueue {
	return &EventQueue{
		q: newBoundedQueue[dto.Event](maxBytes, dto.Event.Size, emitter, EventTypeQueueFull, "split-event-queue"),
	}
}

// Put enqueues events in order, returning true iff all were accepted
// within the byte budget; once the budget is exhausted, further events
// are dropped and the queue-full event fires once per overflow
// transition.
func (q *EventQueue) Put(events ...dto.Event) bool {
	return q.q.put(events)
}

// PopMany removes and returns up to n events in FIFO order.
func (q *EventQueue) PopMany(n int) []dto.Event {
	return q.q.popMany(n)
}

// Count returns the number of queued events.
func (q *EventQueue) Count() int {
	return q.q.count()
}

// BytesUsed returns the current aggregate Size() of queued events.
func (q *EventQueue) BytesUsed() int {
	return q.q.unitsUsed()
}
