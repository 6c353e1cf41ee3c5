// Package transport defines the contract between the synchronizers and
// the backend control plane, plus a production-ready HTTP
// implementation of it: a pooled, timeout-configured *http.Transport
// behind a service interface.
package transport

import (
	"context"

	"github.com/GoCodeAlone/split-go-core/dto"
)

// ChangesResponse wraps a /splitChanges or /segmentChanges page: the
// payload plus the cursor the caller should request next.
type ChangesResponse[T any] struct {
	Items []T
	Since int64
	Till  int64
}

// StreamChannel is one push channel the streaming token grants access
// to. PublisherMetadata reports the channel-metadata:publishers
// capability, which subscribes the channel with occupancy monitoring.
type StreamChannel struct {
	Name              string
	PublisherMetadata bool
}

// AuthResponse is the result of authenticating against the streaming
// auth endpoint: whether streaming is enabled for this key, and if so
// the SSE token and the channels its capability claims grant.
type AuthResponse struct {
	PushEnabled bool
	Token       string
	Channels    []StreamChannel
	Expiration  int64 // unix seconds the token is valid until
}

// Backend is everything a synchronizer needs from the control plane.
// Implementations must be safe for concurrent use: the coordinator calls
// these from multiple synchronizer goroutines at once.
type Backend interface {
	// SplitChanges fetches flag definitions newer than since.
	SplitChanges(ctx context.Context, since int64) (ChangesResponse[dto.Flag], error)
	// SegmentChanges fetches membership deltas for name newer than since.
	SegmentChanges(ctx context.Context, name string, since int64) (SegmentChangesResult, error)
	// Auth exchanges the SDK key for streaming credentials.
	Auth(ctx context.Context) (AuthResponse, error)
	// PostImpressions flushes a batch of impressions.
	PostImpressions(ctx context.Context, impressions []dto.Impression) error
	// PostEvents flushes a batch of track() events.
	PostEvents(ctx context.Context, events []dto.Event) error
	// PostTelemetry flushes counters/gauges/latencies.
	PostTelemetry(ctx context.Context, counters map[string]int64, gauges map[string]float64, latencies map[string][23]int64) error
}

// SegmentChangesResult is the added/removed delta for one segment page.
type SegmentChangesResult struct {
	Name    string
	Added   []string
	Removed []string
	Since   int64
	Till    int64
}
