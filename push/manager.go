package push

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoCodeAlone/split-go-core/internal/logging"
	"github.com/GoCodeAlone/split-go-core/sse"
	"github.com/GoCodeAlone/split-go-core/storage"
	"github.com/GoCodeAlone/split-go-core/transport"
)

// tokenExpiryMargin is how long before a streaming token's expiration
// the manager re-authenticates.
const tokenExpiryMargin = 10 * time.Minute

// Hooks are the manager's non-owning handles back into the rest of the
// runtime. The coordinator supplies these.
type Hooks struct {
	// SyncFlags triggers an immediate flag synchronization.
	SyncFlags func(ctx context.Context)
	// SyncSegment triggers an immediate synchronization of one segment.
	SyncSegment func(ctx context.Context, name string)
	// OnStateChange is invoked (from the dispatcher goroutine) whenever
	// the manager's state changes, so the coordinator can pause/resume
	// its periodic tasks accordingly.
	OnStateChange func(State)
}

// Manager is the push state machine: it authenticates, opens the SSE
// stream, reacts to notifications and occupancy, and falls back to (or
// recovers from) polling mode.
type Manager struct {
	backend       transport.Backend
	flagStorage   *storage.FlagStorage
	streamBaseURL string
	hooks         Hooks
	logger        logging.Logger

	sseClient *sse.Client

	mu    sync.Mutex
	state State

	// disabled latches true once a STREAMING_DISABLED control message
	// arrives; the manager never attempts to re-authenticate
	// afterwards.
	disabled bool

	// zeroOccupancy holds the monitored channels whose last occupancy
	// notification reported zero publishers; len(zeroOccupancy) > 0 means at least one monitored channel has
	// dropped to zero publishers, which forces POLLING even while the
	// stream itself is healthy.
	zeroOccupancy map[string]bool

	cmds      chan func()
	closed    atomic.Bool
	closeOnce sync.Once

	generation int
}

// NewManager builds a Manager. flagStorage is used for SPLIT_KILL's
// local kill application.
func NewManager(backend transport.Backend, flagStorage *storage.FlagStorage, streamBaseURL string, hooks Hooks, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	m := &Manager{
		backend:       backend,
		flagStorage:   flagStorage,
		streamBaseURL: streamBaseURL,
		hooks:         hooks,
		logger:        logging.WithOperation(logger, "push.Manager"),
		state:         Idle,
		zeroOccupancy: make(map[string]bool),
		cmds:          make(chan func(), 64),
	}
	go m.dispatchLoop()
	return m
}

// State returns the manager's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) dispatchLoop() {
	for cmd := range m.cmds {
		cmd()
	}
}

// enqueue serializes cmd onto the dispatcher; a Manager past Stopped
// drops the command.
func (m *Manager) enqueue(cmd func()) {
	if m.closed.Load() {
		return
	}
	defer func() { recover() }() // closed between the Load above and this send
	m.cmds <- cmd
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	if m.hooks.OnStateChange != nil {
		m.hooks.OnStateChange(s)
	}
}

// Start begins the IDLE -> AUTHENTICATING transition.
func (m *Manager) Start(ctx context.Context) {
	m.enqueue(func() { m.authenticate(ctx) })
}

func (m *Manager) authenticate(ctx context.Context) {
	if m.disabled {
		m.setState(Polling)
		return
	}
	m.setState(Authenticating)

	resp, err := m.backend.Auth(ctx)
	if err != nil {
		m.logger.Warn("auth failed, falling back to polling", "error", err)
		m.setState(Polling)
		return
	}
	if !resp.PushEnabled {
		m.logger.Info("push disabled for this key, using polling")
		m.setState(Polling)
		return
	}

	channels := channelsFromAuth(resp.Channels)
	m.sseClient = sse.NewClient(m.streamBaseURL,
		func(evt sse.Event) { m.enqueue(func() { m.handleEvent(ctx, evt) }) },
		func() {},
		func(requested bool) {
			if !requested {
				m.enqueue(func() { m.onStreamDown(ctx) })
			}
		},
		m.logger)

	ok, err := m.sseClient.Start(ctx, resp.Token, channels)
	if err != nil || !ok {
		m.logger.Warn("sse connect failed, falling back to polling", "error", err)
		m.setState(Polling)
		return
	}

	m.setState(Connected)
	m.scheduleTokenRefresh(ctx, resp.Expiration)
}

func channelsFromAuth(granted []transport.StreamChannel) []sse.Channel {
	channels := make([]sse.Channel, len(granted))
	for i, g := range granted {
		channels[i] = sse.Channel{Name: g.Name, PublisherMetadata: g.PublisherMetadata}
	}
	return channels
}

func (m *Manager) scheduleTokenRefresh(ctx context.Context, expirationUnix int64) {
	m.generation++
	gen := m.generation
	delay := time.Until(time.Unix(expirationUnix, 0).Add(-tokenExpiryMargin))
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		m.enqueue(func() {
			if m.generation != gen || m.state != Connected {
				return
			}
			if m.sseClient != nil {
				m.sseClient.Stop(true)
			}
			m.authenticate(ctx)
		})
	})
}

func (m *Manager) onStreamDown(ctx context.Context) {
	if m.state == Stopped {
		return
	}
	m.logger.Warn("sse stream dropped, falling back to polling")
	m.setState(Polling)
}

func (m *Manager) handleEvent(ctx context.Context, evt sse.Event) {
	notif, err := ParseNotification(evt.Event, evt.Data)
	if err != nil {
		m.logger.Warn("dropping malformed push notification", "error", err)
		return
	}

	switch notif.Type {
	case NotificationSplitUpdate:
		m.handleSplitUpdate(ctx, notif)
	case NotificationSplitKill:
		m.handleSplitKill(ctx, notif)
	case NotificationSegmentUpdate:
		m.handleSegmentUpdate(ctx, notif)
	case NotificationControl:
		m.handleControl(notif)
	case NotificationOccupancy:
		m.handleOccupancy(notif)
	default:
		m.logger.Warn("unknown push notification type", "type", string(notif.Type))
	}
}

// storedChangeNumber returns the flag storage's change-number cursor,
// which flag synchronization advances. Notifications at or below it are
// dropped.
func (m *Manager) storedChangeNumber() int64 {
	return m.flagStorage.ChangeNumber()
}

func (m *Manager) handleSplitUpdate(ctx context.Context, n Notification) {
	if n.ChangeNumber <= m.storedChangeNumber() {
		return
	}
	if m.hooks.SyncFlags != nil {
		m.hooks.SyncFlags(ctx)
	}
}

func (m *Manager) handleSplitKill(ctx context.Context, n Notification) {
	if n.ChangeNumber <= m.storedChangeNumber() {
		return
	}
	m.flagStorage.KillLocally(n.FlagName, n.DefaultTreatment, n.ChangeNumber)
	if m.hooks.SyncFlags != nil {
		m.hooks.SyncFlags(ctx)
	}
}

func (m *Manager) handleSegmentUpdate(ctx context.Context, n Notification) {
	// Segment change numbers are tracked per-segment in
	// storage.SegmentStorage, not surfaced here; the segment
	// synchronizer itself is idempotent against since==till, so this
	// core simply triggers a sync and lets it resolve whether there is
	// anything new to fetch.
	if m.hooks.SyncSegment != nil {
		m.hooks.SyncSegment(ctx, n.SegmentName)
	}
}

func (m *Manager) handleControl(n Notification) {
	switch n.Control {
	case ControlStreamingPaused:
		m.setState(Polling)
	case ControlStreamingResumed:
		if m.state == Polling && !m.disabled {
			m.setState(Connected)
		}
	case ControlStreamingDisabled:
		m.disabled = true
		if m.sseClient != nil {
			m.sseClient.Stop(true)
		}
		m.setState(Polling)
	default:
		m.logger.Warn("unknown control notification", "controlType", string(n.Control))
	}
}

func (m *Manager) handleOccupancy(n Notification) {
	if n.Publishers > 0 {
		delete(m.zeroOccupancy, n.Channel)
		if len(m.zeroOccupancy) == 0 && m.state == Polling && !m.disabled {
			m.setState(Connected)
		}
		return
	}
	m.zeroOccupancy[n.Channel] = true
	if m.state == Connected {
		m.setState(Polling)
	}
}

// Stop transitions to STOPPED from any state, tearing
// down the SSE stream if one is open, then stops the dispatcher. Stop
// blocks until the transition has been applied.
func (m *Manager) Stop() {
	if m.closed.Load() {
		return
	}
	done := make(chan struct{})
	m.enqueue(func() {
		if m.sseClient != nil && m.sseClient.Connected() {
			m.sseClient.Stop(true)
		}
		m.setState(Stopped)
		close(done)
	})
	<-done
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.cmds)
	})
}
