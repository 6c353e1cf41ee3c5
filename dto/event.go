package dto

import "time"

// MaxEventPropertiesBytes is the maximum serialized size of Event.Properties.
const MaxEventPropertiesBytes = 32768

// MaxEventPropertiesKeys is the maximum number of keys in Event.Properties.
const MaxEventPropertiesKeys = 300

// baseEventSizeBytes approximates the fixed overhead of an event's
// non-property fields, used by Event.Size.
const baseEventSizeBytes = 1024

// Event is a track() call: a key/trafficType/eventType tuple with an
// optional numeric value and a property bag.
//
// Value is a pointer so that "explicitly absent" (nil, accepted) stays
// distinct from an invalid value; a caller-side validator is responsible
// for rejecting non-numeric values before one ever reaches this type.
type Event struct {
	Key         string
	TrafficType string
	EventType   string
	Value       *float64
	Timestamp   time.Time
	Properties  map[string]interface{}
}

// Size computes the event's accounted byte size: a fixed per-event
// overhead plus the serialized weight of each property entry. It does not
// call encoding/json — property values are restricted to string, number,
// boolean, and nil, so a cheap manual estimate suffices and keeps the
// queue's bounding check allocation-free on the hot path.
func (e Event) Size() int {
	size := baseEventSizeBytes
	for k, v := range e.Properties {
		size += len(k)
		switch val := v.(type) {
		case string:
			size += len(val)
		case nil:
			size += 0
		case bool:
			size += 5
		default:
			size += 8
		}
	}
	return size
}
