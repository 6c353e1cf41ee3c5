// Package coordinator owns the scheduled tasks and the push manager and
// routes the push state machine's mode changes to pause/resume on the
// periodic flag/segment tasks. Exactly one synchronization mode is
// active at any moment: either the periodic tasks run at their
// configured rates, or streaming is live and the flag/segment tasks are
// suspended while the flush tasks keep draining.
//
// The coordinator holds the only owning references; synchronizers,
// tasks and the push manager receive non-owning handles, so no
// component holds a reference cycle back to its owner.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/split-go-core/config"
	"github.com/GoCodeAlone/split-go-core/internal/logging"
	"github.com/GoCodeAlone/split-go-core/polling"
	"github.com/GoCodeAlone/split-go-core/push"
	"github.com/GoCodeAlone/split-go-core/storage"
	splitsync "github.com/GoCodeAlone/split-go-core/sync"
	"github.com/GoCodeAlone/split-go-core/transport"
)

// Storages groups the in-memory state the coordinator wires the
// synchronizers and the push manager against.
type Storages struct {
	Flags       *storage.FlagStorage
	Segments    *storage.SegmentStorage
	Impressions *storage.ImpressionQueue
	Events      *storage.EventQueue
	Telemetry   *storage.TelemetryStorage
}

// Coordinator starts and stops the periodic and streaming
// synchronization modes.
type Coordinator struct {
	cfg    config.Config
	logger logging.Logger

	flagSync       *splitsync.FlagSynchronizer
	segmentSync    *splitsync.SegmentSynchronizer
	impressionSync *splitsync.ImpressionSynchronizer
	eventSync      *splitsync.EventSynchronizer
	telemetrySync  *splitsync.TelemetrySynchronizer

	flagTask       *polling.Task
	segmentTask    *polling.Task
	impressionTask *polling.Task
	eventTask      *polling.Task
	telemetryTask  *polling.Task

	pushManager *push.Manager
	segments    *storage.SegmentStorage

	mu        sync.Mutex
	mode      Mode
	ctx       context.Context
	cancel    context.CancelFunc
	streaming bool
}

// Mode is the coordinator's current synchronization mode.
type Mode int

const (
	ModeStopped Mode = iota
	ModePeriodic
	ModeStreaming
)

func (m Mode) String() string {
	switch m {
	case ModePeriodic:
		return "PERIODIC"
	case ModeStreaming:
		return "STREAMING"
	default:
		return "STOPPED"
	}
}

// New builds a Coordinator from cfg, wiring synchronizers and periodic
// tasks against backend and stores. streamBaseURL is the SSE endpoint
// base; it is only used when cfg.StreamingEnabled is set.
func New(cfg config.Config, backend transport.Backend, stores Storages, streamBaseURL string, logger logging.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	c := &Coordinator{
		cfg:      cfg,
		logger:   logging.WithOperation(logger, "coordinator.Coordinator"),
		segments: stores.Segments,
	}

	c.flagSync = splitsync.NewFlagSynchronizer(backend, stores.Flags, logger)
	c.segmentSync = splitsync.NewSegmentSynchronizer(backend, stores.Segments, cfg.SegmentWorkerPoolSize, logger)
	c.impressionSync = splitsync.NewImpressionSynchronizer(backend, stores.Impressions, 0, logger)
	c.eventSync = splitsync.NewEventSynchronizer(backend, stores.Events, 0, logger)
	c.telemetrySync = splitsync.NewTelemetrySynchronizer(backend, stores.Telemetry, logger)

	var err error
	if c.flagTask, err = polling.NewTask("flags", seconds(cfg.FeaturesRefreshRate), c.syncFlagsAndPending, logger); err != nil {
		return nil, fmt.Errorf("coordinator: flag task: %w", err)
	}
	if c.segmentTask, err = polling.NewTask("segments", seconds(cfg.SegmentsRefreshRate), c.syncAllSegments, logger); err != nil {
		return nil, fmt.Errorf("coordinator: segment task: %w", err)
	}
	if c.impressionTask, err = polling.NewTask("impressions", seconds(cfg.ImpressionsRefreshRate), c.impressionSync.Synchronize, logger); err != nil {
		return nil, fmt.Errorf("coordinator: impression task: %w", err)
	}
	if c.eventTask, err = polling.NewTask("events", seconds(cfg.EventsRefreshRate), c.eventSync.Synchronize, logger); err != nil {
		return nil, fmt.Errorf("coordinator: event task: %w", err)
	}
	if c.telemetryTask, err = polling.NewTask("telemetry", seconds(cfg.MetricsRefreshRate), c.telemetrySync.Synchronize, logger); err != nil {
		return nil, fmt.Errorf("coordinator: telemetry task: %w", err)
	}

	if cfg.StreamingEnabled {
		c.pushManager = push.NewManager(backend, stores.Flags, streamBaseURL, push.Hooks{
			SyncFlags: func(ctx context.Context) {
				if err := c.flagSync.Synchronize(ctx); err != nil {
					c.logger.Warn("push-triggered flag sync failed", "error", err)
				}
			},
			SyncSegment: func(ctx context.Context, name string) {
				if err := c.segmentSync.Synchronize(ctx, name); err != nil {
					c.logger.Warn("push-triggered segment sync failed", "segment", name, "error", err)
				}
			},
			OnStateChange: c.onPushStateChange,
		}, logger)
	}

	return c, nil
}

func seconds(n int) string {
	return fmt.Sprintf("%ds", n)
}

func (c *Coordinator) syncFlagsAndPending(ctx context.Context) error {
	return c.flagSync.Synchronize(ctx)
}

// syncAllSegments fans out over every segment name currently referenced
// in segment storage.
func (c *Coordinator) syncAllSegments(ctx context.Context) error {
	return c.segmentSync.SynchronizeAll(ctx, c.segments.Names())
}

// Mode returns the coordinator's current mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// StartPeriodic starts every periodic task at its configured rate.
// Calling it while already started is a no-op.
func (c *Coordinator) StartPeriodic(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeStopped {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.startTasksLocked()
	c.mode = ModePeriodic
	c.logger.Info("periodic synchronization started")
}

// StartStreaming starts the flush tasks, then hands control of the
// flag/segment cadence to the push manager: while the stream is
// CONNECTED those two tasks stay paused, and any fallback to polling
// resumes them. If streaming is disabled by configuration this degrades
// to StartPeriodic.
func (c *Coordinator) StartStreaming(ctx context.Context) {
	c.mu.Lock()
	if c.mode != ModeStopped {
		c.mu.Unlock()
		return
	}
	if c.pushManager == nil {
		c.mu.Unlock()
		c.StartPeriodic(ctx)
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.startTasksLocked()
	c.mode = ModeStreaming
	c.streaming = true
	c.mu.Unlock()

	c.logger.Info("streaming synchronization starting")
	c.pushManager.Start(c.ctx)
}

// startTasksLocked starts all five periodic tasks. Caller holds c.mu.
func (c *Coordinator) startTasksLocked() {
	for _, t := range c.tasks() {
		t.Start(c.ctx)
	}
}

func (c *Coordinator) tasks() []*polling.Task {
	return []*polling.Task{c.flagTask, c.segmentTask, c.impressionTask, c.eventTask, c.telemetryTask}
}

// onPushStateChange is invoked from the push manager's dispatcher.
// CONNECTED suspends the periodic flag/segment fetches; every fallback
// state resumes them. The flush tasks are unaffected: impressions,
// events and telemetry drain on their own cadence in both modes.
func (c *Coordinator) onPushStateChange(s push.State) {
	switch s {
	case push.Connected:
		c.flagTask.Pause()
		c.segmentTask.Pause()
		c.logger.Info("stream connected, periodic fetching suspended")
	case push.Polling:
		c.flagTask.Resume()
		c.segmentTask.Resume()
		c.logger.Info("fell back to polling, periodic fetching resumed")
	case push.Stopped:
		// Stop() handles task teardown.
	}
}

// Stop halts the push manager (if streaming), stops every task, and
// performs one best-effort final drain of the impression and event
// queues.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.mode == ModeStopped {
		c.mu.Unlock()
		return
	}
	c.mode = ModeStopped
	streaming := c.streaming
	c.streaming = false
	cancel := c.cancel
	c.mu.Unlock()

	if streaming && c.pushManager != nil {
		c.pushManager.Stop()
	}
	for _, t := range c.tasks() {
		t.Stop()
	}

	// Final drain runs on a fresh context: ctx is about to be cancelled
	// and a cancelled context would abort the POSTs mid-flight.
	drainCtx := context.Background()
	c.impressionSync.Flush(drainCtx)
	c.eventSync.Flush(drainCtx)

	if cancel != nil {
		cancel()
	}
	c.logger.Info("synchronization stopped")
}
