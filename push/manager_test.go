package push_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/split-go-core/dto"
	"github.com/GoCodeAlone/split-go-core/push"
	"github.com/GoCodeAlone/split-go-core/storage"
	"github.com/GoCodeAlone/split-go-core/transport"
)

type fakeBackend struct {
	authResp transport.AuthResponse
	authErr  error
}

func (f *fakeBackend) SplitChanges(ctx context.Context, since int64) (transport.ChangesResponse[dto.Flag], error) {
	return transport.ChangesResponse[dto.Flag]{Since: since, Till: since}, nil
}

func (f *fakeBackend) SegmentChanges(ctx context.Context, name string, since int64) (transport.SegmentChangesResult, error) {
	return transport.SegmentChangesResult{Name: name, Since: since, Till: since}, nil
}

func (f *fakeBackend) Auth(ctx context.Context) (transport.AuthResponse, error) {
	return f.authResp, f.authErr
}

func (f *fakeBackend) PostImpressions(ctx context.Context, impressions []dto.Impression) error {
	return nil
}

func (f *fakeBackend) PostEvents(ctx context.Context, events []dto.Event) error {
	return nil
}

func (f *fakeBackend) PostTelemetry(ctx context.Context, counters map[string]int64, gauges map[string]float64, latencies map[string][23]int64) error {
	return nil
}

// stateRecorder collects every state transition the manager reports.
type stateRecorder struct {
	mu     sync.Mutex
	states []push.State
}

func (r *stateRecorder) record(s push.State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) last() push.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return push.Idle
	}
	return r.states[len(r.states)-1]
}

func waitForState(t *testing.T, r *stateRecorder, want push.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.last() == want
	}, 2*time.Second, 10*time.Millisecond, "never reached %s", want)
}

// streamServer is a controllable SSE endpoint: frames written to the
// frames channel are flushed to the connected client in order.
func streamServer(t *testing.T, frames chan string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for {
			select {
			case frame, ok := <-frames:
				if !ok {
					return
				}
				fmt.Fprint(w, frame)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}))
}

func validAuth() transport.AuthResponse {
	return transport.AuthResponse{
		PushEnabled: true,
		Token:       "jwt-token",
		Channels:    []transport.StreamChannel{{Name: "control_pri", PublisherMetadata: true}},
		Expiration:  time.Now().Add(time.Hour).Unix(),
	}
}

func TestManagerAuthFailureFallsBackToPolling(t *testing.T) {
	recorder := &stateRecorder{}
	m := push.NewManager(&fakeBackend{authErr: fmt.Errorf("401")}, storage.NewFlagStorage(nil), "", push.Hooks{
		OnStateChange: recorder.record,
	}, nil)
	defer m.Stop()

	m.Start(context.Background())
	waitForState(t, recorder, push.Polling)
}

func TestManagerPushDisabledFallsBackToPolling(t *testing.T) {
	recorder := &stateRecorder{}
	m := push.NewManager(&fakeBackend{authResp: transport.AuthResponse{PushEnabled: false}}, storage.NewFlagStorage(nil), "", push.Hooks{
		OnStateChange: recorder.record,
	}, nil)
	defer m.Stop()

	m.Start(context.Background())
	waitForState(t, recorder, push.Polling)
}

func TestManagerConnectsAndAppliesSplitKill(t *testing.T) {
	frames := make(chan string, 8)
	frames <- "id:1\n\n"
	server := streamServer(t, frames)
	defer server.Close()
	defer close(frames)

	flags := storage.NewFlagStorage(nil)
	flags.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user", DefaultTreatment: "off", Status: dto.StatusActive, ChangeNumber: 5})

	recorder := &stateRecorder{}
	synced := make(chan struct{}, 4)
	m := push.NewManager(&fakeBackend{authResp: validAuth()}, flags, server.URL, push.Hooks{
		SyncFlags:     func(ctx context.Context) { synced <- struct{}{} },
		OnStateChange: recorder.record,
	}, nil)
	defer m.Stop()

	m.Start(context.Background())
	waitForState(t, recorder, push.Connected)

	frames <- "event:message\ndata:{\"type\":\"SPLIT_KILL\",\"changeNumber\":10,\"splitName\":\"f1\",\"defaultTreatment\":\"control_killed\"}\n\n"

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("SPLIT_KILL never triggered a flag sync")
	}
	flag := flags.Get("f1")
	require.NotNil(t, flag)
	assert.True(t, flag.Killed)
	assert.Equal(t, "control_killed", flag.DefaultTreatment)
	assert.EqualValues(t, 10, flag.ChangeNumber)
}

func TestManagerDropsStaleSplitUpdate(t *testing.T) {
	frames := make(chan string, 8)
	frames <- "id:1\n\n"
	server := streamServer(t, frames)
	defer server.Close()
	defer close(frames)

	flags := storage.NewFlagStorage(nil)
	flags.Put(&dto.Flag{Name: "f1", TrafficTypeName: "user", Status: dto.StatusActive, ChangeNumber: 20})
	flags.SetChangeNumber(20)

	recorder := &stateRecorder{}
	synced := make(chan struct{}, 4)
	m := push.NewManager(&fakeBackend{authResp: validAuth()}, flags, server.URL, push.Hooks{
		SyncFlags:     func(ctx context.Context) { synced <- struct{}{} },
		OnStateChange: recorder.record,
	}, nil)
	defer m.Stop()

	m.Start(context.Background())
	waitForState(t, recorder, push.Connected)

	// changeNumber 10 <= stored 20: dropped.
	frames <- "event:message\ndata:{\"type\":\"SPLIT_UPDATE\",\"changeNumber\":10}\n\n"
	// changeNumber 30 > stored 20: triggers a sync.
	frames <- "event:message\ndata:{\"type\":\"SPLIT_UPDATE\",\"changeNumber\":30}\n\n"

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("fresh SPLIT_UPDATE never triggered a flag sync")
	}
	select {
	case <-synced:
		t.Fatal("stale SPLIT_UPDATE triggered a second sync")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManagerControlPausedAndResumed(t *testing.T) {
	frames := make(chan string, 8)
	frames <- "id:1\n\n"
	server := streamServer(t, frames)
	defer server.Close()
	defer close(frames)

	recorder := &stateRecorder{}
	m := push.NewManager(&fakeBackend{authResp: validAuth()}, storage.NewFlagStorage(nil), server.URL, push.Hooks{
		OnStateChange: recorder.record,
	}, nil)
	defer m.Stop()

	m.Start(context.Background())
	waitForState(t, recorder, push.Connected)

	frames <- "event:message\ndata:{\"type\":\"CONTROL\",\"controlType\":\"STREAMING_PAUSED\"}\n\n"
	waitForState(t, recorder, push.Polling)

	frames <- "event:message\ndata:{\"type\":\"CONTROL\",\"controlType\":\"STREAMING_RESUMED\"}\n\n"
	waitForState(t, recorder, push.Connected)
}

func TestManagerZeroOccupancyFallsBackAndRecovers(t *testing.T) {
	frames := make(chan string, 8)
	frames <- "id:1\n\n"
	server := streamServer(t, frames)
	defer server.Close()
	defer close(frames)

	recorder := &stateRecorder{}
	m := push.NewManager(&fakeBackend{authResp: validAuth()}, storage.NewFlagStorage(nil), server.URL, push.Hooks{
		OnStateChange: recorder.record,
	}, nil)
	defer m.Stop()

	m.Start(context.Background())
	waitForState(t, recorder, push.Connected)

	frames <- "event:control_pri\ndata:{\"type\":\"OCCUPANCY\",\"metrics\":{\"publishers\":0}}\n\n"
	waitForState(t, recorder, push.Polling)

	frames <- "event:control_pri\ndata:{\"type\":\"OCCUPANCY\",\"metrics\":{\"publishers\":2}}\n\n"
	waitForState(t, recorder, push.Connected)
}

func TestManagerStreamingDisabledIsTerminal(t *testing.T) {
	frames := make(chan string, 8)
	frames <- "id:1\n\n"
	server := streamServer(t, frames)
	defer server.Close()

	recorder := &stateRecorder{}
	m := push.NewManager(&fakeBackend{authResp: validAuth()}, storage.NewFlagStorage(nil), server.URL, push.Hooks{
		OnStateChange: recorder.record,
	}, nil)
	defer m.Stop()

	m.Start(context.Background())
	waitForState(t, recorder, push.Connected)

	frames <- "event:message\ndata:{\"type\":\"CONTROL\",\"controlType\":\"STREAMING_DISABLED\"}\n\n"
	close(frames)
	waitForState(t, recorder, push.Polling)

	// A resume after disable must not reconnect.
	m.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, push.Polling, m.State())
}

func TestManagerStopFromAnyState(t *testing.T) {
	recorder := &stateRecorder{}
	m := push.NewManager(&fakeBackend{authErr: fmt.Errorf("down")}, storage.NewFlagStorage(nil), "", push.Hooks{
		OnStateChange: recorder.record,
	}, nil)

	m.Start(context.Background())
	waitForState(t, recorder, push.Polling)

	m.Stop()
	assert.Equal(t, push.Stopped, m.State())
	// Stop is idempotent.
	m.Stop()
}

func TestParseNotificationMalformedPayload(t *testing.T) {
	_, err := push.ParseNotification("message", "{not json")
	assert.Error(t, err)
}

func TestParseNotificationSplitUpdate(t *testing.T) {
	n, err := push.ParseNotification("message", `{"type":"SPLIT_UPDATE","changeNumber":42}`)
	require.NoError(t, err)
	assert.Equal(t, push.NotificationSplitUpdate, n.Type)
	assert.EqualValues(t, 42, n.ChangeNumber)
}
