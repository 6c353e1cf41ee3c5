package push

import (
	"encoding/json"

	"github.com/GoCodeAlone/split-go-core/transport"
)

// NotificationType tags the kind of message an SSE event's data payload
// carries.
type NotificationType string

const (
	NotificationSplitUpdate   NotificationType = "SPLIT_UPDATE"
	NotificationSplitKill     NotificationType = "SPLIT_KILL"
	NotificationSegmentUpdate NotificationType = "SEGMENT_UPDATE"
	NotificationControl       NotificationType = "CONTROL"
	NotificationOccupancy     NotificationType = "OCCUPANCY"
)

// ControlType distinguishes the three streaming control values rather
// than collapsing them into a single generic "CONTROL" signal.
type ControlType string

const (
	ControlStreamingPaused   ControlType = "STREAMING_PAUSED"
	ControlStreamingResumed  ControlType = "STREAMING_RESUMED"
	ControlStreamingDisabled ControlType = "STREAMING_DISABLED"
)

// Notification is a parsed SSE data payload.
type Notification struct {
	Type             NotificationType
	ChangeNumber     int64
	SegmentName      string
	DefaultTreatment string
	FlagName         string
	Control          ControlType
	Channel          string
	Publishers       int
}

// wireNotification mirrors the control plane's JSON payload shape for a
// push notification's `data:` field.
type wireNotification struct {
	Type             string `json:"type"`
	ChangeNumber     int64  `json:"changeNumber"`
	SegmentName      string `json:"segmentName"`
	SplitName        string `json:"splitName"`
	DefaultTreatment string `json:"defaultTreatment"`
	ControlType      string `json:"controlType"`
	Channel          string `json:"channel"`
	Metrics          struct {
		Publishers int `json:"publishers"`
	} `json:"metrics"`
}

// ParseNotification decodes the JSON data payload of an SSE event into a
// Notification. A malformed payload is a ProtocolError:
// the caller should log it and skip, not crash the dispatcher.
func ParseNotification(channel, data string) (Notification, error) {
	var wire wireNotification
	if err := json.Unmarshal([]byte(data), &wire); err != nil {
		return Notification{}, &transport.ProtocolError{Err: err}
	}
	return Notification{
		Type:             NotificationType(wire.Type),
		ChangeNumber:     wire.ChangeNumber,
		SegmentName:      wire.SegmentName,
		FlagName:         wire.SplitName,
		DefaultTreatment: wire.DefaultTreatment,
		Control:          ControlType(wire.ControlType),
		Channel:          channel,
		Publishers:       wire.Metrics.Publishers,
	}, nil
}
