package sync

import (
	"context"

	"github.com/GoCodeAlone/split-go-core/internal/logging"
	"github.com/GoCodeAlone/split-go-core/storage"
	"github.com/GoCodeAlone/split-go-core/transport"
)

// TelemetrySynchronizer pops and flushes accumulated SDK diagnostics
// (counters, gauges, latency histograms) to the backend, an ambient
// concern TelemetryStorage abstracts behind its pop* operations.
type TelemetrySynchronizer struct {
	backend transport.Backend
	storage *storage.TelemetryStorage
	logger  logging.Logger
}

// NewTelemetrySynchronizer builds a TelemetrySynchronizer.
func NewTelemetrySynchronizer(backend transport.Backend, store *storage.TelemetryStorage, logger logging.Logger) *TelemetrySynchronizer {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &TelemetrySynchronizer{
		backend: backend,
		storage: store,
		logger:  logging.WithOperation(logger, "sync.TelemetrySynchronizer.Synchronize"),
	}
}

// Synchronize pops the current telemetry snapshot and posts it. A post
// failure only logs: telemetry is diagnostic and is not re-queued
// (matching the impression/event synchronizers' at-most-once contract).
func (s *TelemetrySynchronizer) Synchronize(ctx context.Context) error {
	counters := s.storage.PopCounters()
	gauges := s.storage.PopGauges()
	latencies := s.storage.PopLatencies()
	if len(counters) == 0 && len(gauges) == 0 && len(latencies) == 0 {
		return nil
	}
	if err := s.backend.PostTelemetry(ctx, counters, gauges, latencies); err != nil {
		s.logger.Warn("dropped telemetry snapshot", "error", err)
	}
	return nil
}
