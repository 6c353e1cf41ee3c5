package storage

import "sync"

// latencyBucketBounds holds the upper bound, in microseconds, of each of
// the 23 fixed latency buckets. The
// series follows the SDK's classic roughly-1.5x progression from 1ms
// (1000µs) up to about 7.48s, the last bucket catching everything above it.
var latencyBucketBounds = [23]float64{
	1000, 1500, 2250, 3375, 5063, 7594, 11391, 17086, 25629, 38443,
	57665, 86498, 129746, 194620, 291929, 437894, 656841, 985261,
	1477892, 2216838, 3325257, 4987885, 7481828,
}

const latencyBucketCount = 23

// TelemetryStorage accumulates SDK diagnostic counters, gauges, and
// latency histograms between periodic flushes to the backend. Counters only ever increase between pops; gauges hold the last
// value written; latencies are bucketed into latencyBucketCount fixed
// buckets with out-of-range indices clamped to the nearest edge.
type TelemetryStorage struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	latency  map[string]*[latencyBucketCount]int64
}

// NewTelemetryStorage builds an empty TelemetryStorage.
func NewTelemetryStorage() *TelemetryStorage {
	return &TelemetryStorage{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		latency:  make(map[string]*[latencyBucketCount]int64),
	}
}

// RecordCounter adds delta to the named counter. Counters are monotone:
// delta is expected to be non-negative, and callers passing a negative
// delta get the same additive semantics (for symmetry with a future
// decrement need) rather than a panic.
func (t *TelemetryStorage) RecordCounter(name string, delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[name] += delta
}

// RecordGauge overwrites the named gauge with value (last-writer-wins).
func (t *TelemetryStorage) RecordGauge(name string, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gauges[name] = value
}

// bucketIndexForMillis returns which of the latencyBucketCount buckets
// durationMs falls into, clamped to [0, latencyBucketCount-1]. The
// duration is converted to microseconds before it is compared with the
// bounds.
func bucketIndexForMillis(durationMs float64) int {
	durationMicros := durationMs * 1000
	for i, bound := range latencyBucketBounds {
		if durationMicros <= bound {
			return i
		}
	}
	return latencyBucketCount - 1
}

// RecordLatency increments the bucket corresponding to durationMs for
// the named histogram.
func (t *TelemetryStorage) RecordLatency(name string, durationMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hist, ok := t.latency[name]
	if !ok {
		hist = &[latencyBucketCount]int64{}
		t.latency[name] = hist
	}
	idx := bucketIndexForMillis(durationMs)
	hist[idx]++
}

// RecordLatencyBucket increments bucket index idx directly for the
// named histogram, clamping idx to [0, latencyBucketCount-1] — in
// particular idx == -1 clamps to bucket 0, matching callers that compute
// a bucket index themselves and may underflow.
func (t *TelemetryStorage) RecordLatencyBucket(name string, idx int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 {
		idx = 0
	}
	if idx >= latencyBucketCount {
		idx = latencyBucketCount - 1
	}
	hist, ok := t.latency[name]
	if !ok {
		hist = &[latencyBucketCount]int64{}
		t.latency[name] = hist
	}
	hist[idx]++
}

// PopCounters returns a snapshot of all counters and resets them to zero.
func (t *TelemetryStorage) PopCounters() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := t.counters
	t.counters = make(map[string]int64)
	return snapshot
}

// PopGauges returns a snapshot of all gauges and resets the map empty.
func (t *TelemetryStorage) PopGauges() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := t.gauges
	t.gauges = make(map[string]float64)
	return snapshot
}

// PopLatencies returns a snapshot of every histogram's bucket counts and
// resets the set of tracked histograms empty.
func (t *TelemetryStorage) PopLatencies() map[string][latencyBucketCount]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make(map[string][latencyBucketCount]int64, len(t.latency))
	for name, hist := range t.latency {
		snapshot[name] = *hist
	}
	t.latency = make(map[string]*[latencyBucketCount]int64)
	return snapshot
}
