// Package storage implements the bounded, concurrent in-memory state the
// evaluation engine reads and the synchronizers write: flag/segment maps
// with traffic-type reference counting, and bounded impression/event
// queues with a queue-full hook.
package storage

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Event type constants, in reverse domain notation.
const (
	EventTypeQueueFull            = "com.split.storage.queue.full"
	EventTypeTrafficTypeExhausted = "com.split.storage.trafficType.exhausted"
	EventTypeFlagKilledLocally    = "com.split.storage.flag.killedLocally"
)

// EventEmitter receives structured lifecycle events from storage. A nil
// EventEmitter is valid: storage operates the same way, it just has no
// one to tell.
type EventEmitter func(ctx context.Context, event cloudevents.Event)

// newEvent builds a CloudEvent with a reverse-domain type, a source,
// and a data payload.
func newEvent(eventType, source string, data map[string]interface{}) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetType(eventType)
	event.SetSource(source)
	event.SetTime(time.Now())
	_ = event.SetData(cloudevents.ApplicationJSON, data)
	return event
}

func emit(emitter EventEmitter, ctx context.Context, eventType, source string, data map[string]interface{}) {
	if emitter == nil {
		return
	}
	emitter(ctx, newEvent(eventType, source, data))
}
