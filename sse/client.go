package sse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/GoCodeAlone/split-go-core/internal/logging"
)

// ErrAlreadyConnected is returned by Start when the client already has
// an active stream.
var ErrAlreadyConnected = errors.New("sse: client is already connected")

// Channel pairs a channel name with whether it carries the
// channel-metadata:publishers capability, which wraps it in an occupancy
// query prefix when encoded.
type Channel struct {
	Name              string
	PublisherMetadata bool
}

// EncodeChannels renders channels: those with the publishers capability
// are wrapped as `[?occupancy=metrics.publishers]<name>`, all joined by
// commas in input order.
func EncodeChannels(channels []Channel) string {
	parts := make([]string, len(channels))
	for i, c := range channels {
		if c.PublisherMetadata {
			parts[i] = "[?occupancy=metrics.publishers]" + c.Name
		} else {
			parts[i] = c.Name
		}
	}
	return strings.Join(parts, ",")
}

// Client maintains one live HTTP SSE stream and delivers parsed events
// to a handler.
type Client struct {
	streamBaseURL string
	httpClient    *http.Client
	logger        logging.Logger

	onEvent      func(Event)
	onConnect    func()
	onDisconnect func(requested bool)

	mu            sync.Mutex
	connected     bool
	stopRequested bool
	cancel        context.CancelFunc
	doneCh        chan struct{}
}

// NewClient builds a Client against the stream base URL. onEvent is
// called for every parsed non-error event after the first one, including
// CONTROL/OCCUPANCY notifications, which are opaque at this layer; the
// push manager interprets their Data payload. The first event only
// confirms the connection and is not forwarded, and an error event ends
// the read loop without being forwarded.
func NewClient(streamBaseURL string, onEvent func(Event), onConnect func(), onDisconnect func(requested bool), logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Client{
		streamBaseURL: streamBaseURL,
		httpClient:    &http.Client{}, // no client-side timeout: the stream is meant to stay open
		onEvent:       onEvent,
		onConnect:     onConnect,
		onDisconnect:  onDisconnect,
		logger:        logging.WithOperation(logger, "sse.Client"),
	}
}

func (c *Client) buildURL(token string, channels []Channel) string {
	return fmt.Sprintf("%s/event-stream?v=1.1&accessToken=%s&channels=%s",
		c.streamBaseURL, url.QueryEscape(token), url.QueryEscape(EncodeChannels(channels)))
}

// Start opens the stream and blocks until either the first event
// arrives (returns true), an error event arrives first (returns false),
// or a connection error/timeout occurs (returns false). Subsequent
// Start calls while connected return ErrAlreadyConnected.
func (c *Client) Start(ctx context.Context, token string, channels []Channel) (bool, error) {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return false, ErrAlreadyConnected
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.connected = true
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.buildURL(token, channels), nil)
	if err != nil {
		c.finishConnection(false)
		cancel()
		return false, fmt.Errorf("sse: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.finishConnection(false)
		cancel()
		return false, fmt.Errorf("sse: connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.finishConnection(false)
		cancel()
		return false, fmt.Errorf("sse: unexpected status %d", resp.StatusCode)
	}

	firstEventCh := make(chan bool, 1)
	var once sync.Once
	signalFirst := func(ok bool) {
		once.Do(func() { firstEventCh <- ok })
	}

	go c.readLoop(resp.Body, signalFirst)

	select {
	case ok := <-firstEventCh:
		return ok, nil
	case <-streamCtx.Done():
		return false, streamCtx.Err()
	case <-time.After(30 * time.Second):
		c.Stop(false)
		return false, errors.New("sse: timed out waiting for first event")
	}
}

func (c *Client) readLoop(body io.ReadCloser, signalFirst func(bool)) {
	defer body.Close()
	defer close(c.doneCh)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	first := true
	parseStream(scanner, func(evt Event) bool {
		if first {
			first = false
			// The connection was established the moment any first event
			// arrives, so the connect handler fires even when that event
			// is an error and Start goes on to return false.
			if c.onConnect != nil {
				c.onConnect()
			}
			if evt.IsError() {
				signalFirst(false)
				return false
			}
			signalFirst(true)
			// The event that unblocks Start confirms the connection; it
			// is not itself forwarded to the message handler.
			return true
		}
		if evt.IsError() {
			return false
		}
		if c.onEvent != nil {
			c.onEvent(evt)
		}
		return true
	})

	c.mu.Lock()
	wasRequested := c.stopRequested
	c.connected = false
	c.mu.Unlock()

	if c.onDisconnect != nil {
		c.onDisconnect(wasRequested)
	}
}

func (c *Client) finishConnection(ok bool) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	if !ok && c.onDisconnect != nil {
		c.onDisconnect(false)
	}
}

// Stop terminates the read loop. requested=true marks the disconnect as
// caller-initiated, which the disconnect handler receives verbatim.
// Stop blocks until the read loop has exited.
func (c *Client) Stop(requested bool) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.stopRequested = requested
	cancel := c.cancel
	done := c.doneCh
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Connected reports whether the stream is presently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
