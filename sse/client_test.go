package sse_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/split-go-core/sse"
)

func TestEncodeChannelsWrapsPublisherMetadata(t *testing.T) {
	got := sse.EncodeChannels([]sse.Channel{
		{Name: "chan1"},
		{Name: "chan2", PublisherMetadata: true},
	})
	assert.Equal(t, "chan1,[?occupancy=metrics.publishers]chan2", got)
}

func newSSEServer(t *testing.T, writeFrames func(w http.ResponseWriter, flusher http.Flusher)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		writeFrames(w, flusher)
		<-r.Context().Done()
	}))
}

func TestClientStartHappyPath(t *testing.T) {
	server := newSSEServer(t, func(w http.ResponseWriter, flusher http.Flusher) {
		fmt.Fprint(w, "id:1\n\n")
		flusher.Flush()
		go func() {
			time.Sleep(20 * time.Millisecond)
			fmt.Fprint(w, "id:1\nevent:message\nretry:1\ndata:a\n\n")
			fmt.Fprint(w, "id:2\nevent:message\nretry:1\ndata:a\n\n")
			flusher.Flush()
		}()
	})
	defer server.Close()

	var (
		mu       sync.Mutex
		events   []sse.Event
		connects int
	)
	disconnectCh := make(chan bool, 1)

	client := sse.NewClient(server.URL, func(e sse.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}, func() {
		mu.Lock()
		connects++
		mu.Unlock()
	}, func(requested bool) {
		disconnectCh <- requested
	}, nil)

	ok, err := client.Start(context.Background(), "some", []sse.Channel{{Name: "chan1"}})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = client.Start(context.Background(), "some", []sse.Channel{{Name: "chan1"}})
	assert.ErrorIs(t, err, sse.ErrAlreadyConnected)

	time.Sleep(100 * time.Millisecond)
	client.Stop(true)

	select {
	case requested := <-disconnectCh:
		assert.True(t, requested)
	case <-time.After(time.Second):
		t.Fatal("on_disconnect never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, connects)
	require.Len(t, events, 2)
	assert.Equal(t, sse.Event{ID: "1", Event: "message", Retry: "1", Data: "a"}, events[0])
	assert.Equal(t, sse.Event{ID: "2", Event: "message", Retry: "1", Data: "a"}, events[1])
}

func TestClientStartErrorEvent(t *testing.T) {
	server := newSSEServer(t, func(w http.ResponseWriter, flusher http.Flusher) {
		fmt.Fprint(w, "event:error\n\n")
		flusher.Flush()
	})
	defer server.Close()

	var connects atomic.Int32
	disconnectCh := make(chan bool, 1)
	client := sse.NewClient(server.URL, func(sse.Event) {}, func() {
		connects.Add(1)
	}, func(requested bool) {
		disconnectCh <- requested
	}, nil)

	ok, err := client.Start(context.Background(), "some", []sse.Channel{{Name: "chan1"}})
	require.NoError(t, err)
	assert.False(t, ok)

	select {
	case requested := <-disconnectCh:
		assert.False(t, requested)
	case <-time.After(time.Second):
		t.Fatal("on_disconnect never fired")
	}
	// The stream did connect before the error event arrived.
	assert.EqualValues(t, 1, connects.Load())
}
