// Package polling implements the periodic schedulers that drive the
// synchronizers: one cron-style timer per periodic job
// (flag sync, segment sync, impression flush, event flush, telemetry
// flush), each independently pausable so the push manager can suspend
// periodic fetching without tearing down the underlying schedule:
// toggling between streaming and polling is a cooperative pause, never
// a task teardown, so in-flight work is preserved.
package polling

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/split-go-core/internal/logging"
)

// Task wraps one `@every Ns`-scheduled unit of work with cooperative
// pause/resume: Pause sets an atomic flag checked at the top of every
// tick rather than removing the cron entry, so resuming is instant and
// never re-registers a schedule.
type Task struct {
	name   string
	fn     func(ctx context.Context) error
	logger logging.Logger

	cron    *cron.Cron
	entryID cron.EntryID
	paused  atomic.Bool

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewTask builds a Task named name, invoking fn every `@every Ns` per
// spec (e.g. "30s"). fn's error is logged and does not stop future ticks
// — a failed tick is equivalent to a synchronizer's own retry-exhausted
// signal, and the next tick retries.
func NewTask(name, everySpec string, fn func(ctx context.Context) error, logger logging.Logger) (*Task, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	t := &Task{
		name:   name,
		fn:     fn,
		logger: logging.WithOperation(logger, "polling.Task.tick"),
		cron:   cron.New(),
	}
	id, err := t.cron.AddFunc("@every "+everySpec, t.tick)
	if err != nil {
		return nil, err
	}
	t.entryID = id
	return t, nil
}

func (t *Task) tick() {
	if t.paused.Load() {
		return
	}
	ctx := t.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := t.fn(ctx); err != nil {
		t.logger.Warn("periodic tick failed", "task", t.name, "error", err)
	}
}

// Start begins the cron scheduler and runs an immediate tick so the
// first synchronization doesn't wait a full interval.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.cron.Start()
	t.started = true
	go t.tick()
}

// Pause suspends future ticks without removing the cron entry. Resume
// reverses this. The in-flight tick (if any) still runs to completion.
func (t *Task) Pause() {
	t.paused.Store(true)
}

// Resume reverses a prior Pause.
func (t *Task) Resume() {
	t.paused.Store(false)
}

// Paused reports whether the task is currently paused.
func (t *Task) Paused() bool {
	return t.paused.Load()
}

// Stop tears down the cron entry and cancels the task's context. Unlike
// Pause, Stop is terminal: the Task cannot be restarted.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	stopCtx := t.cron.Stop()
	if t.cancel != nil {
		t.cancel()
	}
	<-stopCtx.Done()
	t.started = false
	t.stopped = true
}
