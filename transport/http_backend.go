package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/split-go-core/dto"
	"github.com/GoCodeAlone/split-go-core/internal/logging"
)

// HTTPBackend is a reference Backend implementation wired against the
// control plane's endpoints. It uses a dedicated *http.Transport with
// connection pooling and TLS handshake timeout configured explicitly,
// rather than relying on http.DefaultTransport.
type HTTPBackend struct {
	baseURL      string
	eventsURL    string
	telemetryURL string
	authURL      string
	apiKey       string
	httpClient   *http.Client
	logger       logging.Logger
}

// HTTPBackendOption configures an HTTPBackend at construction time.
type HTTPBackendOption func(*HTTPBackend)

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(l logging.Logger) HTTPBackendOption {
	return func(b *HTTPBackend) { b.logger = l }
}

// WithEventsURL overrides the base URL used for impressions/events
// posting, which Split's SDKs route to a separate host from
// splitChanges/segmentChanges.
func WithEventsURL(u string) HTTPBackendOption {
	return func(b *HTTPBackend) { b.eventsURL = u }
}

// WithTelemetryURL overrides the base URL used for telemetry posting.
func WithTelemetryURL(u string) HTTPBackendOption {
	return func(b *HTTPBackend) { b.telemetryURL = u }
}

// WithAuthURL overrides the base URL used for the streaming auth
// endpoint.
func WithAuthURL(u string) HTTPBackendOption {
	return func(b *HTTPBackend) { b.authURL = u }
}

// NewHTTPBackend builds an HTTPBackend against baseURL (used for
// splitChanges/segmentChanges) authenticating with apiKey.
func NewHTTPBackend(baseURL, apiKey string, opts ...HTTPBackendOption) *HTTPBackend {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	b := &HTTPBackend{
		baseURL:      baseURL,
		eventsURL:    baseURL,
		telemetryURL: baseURL,
		authURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Transport: transport, Timeout: 30 * time.Second},
		logger:       logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *HTTPBackend) do(ctx context.Context, method, rawURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("SplitSDKVersion", "go-core-1.0")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return b.httpClient.Do(req)
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Status: status}
	case status >= 500:
		return &TransientError{Status: status}
	case status >= 400:
		return &ProtocolError{Status: status}
	}
	return nil
}

// SplitChanges implements Backend.
func (b *HTTPBackend) SplitChanges(ctx context.Context, since int64) (ChangesResponse[dto.Flag], error) {
	u := fmt.Sprintf("%s/splitChanges?since=%d", b.baseURL, since)
	resp, err := b.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ChangesResponse[dto.Flag]{}, &TransientError{Err: err}
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return ChangesResponse[dto.Flag]{}, err
	}

	var wire struct {
		Splits []wireFlag `json:"splits"`
		Since  int64      `json:"since"`
		Till   int64      `json:"till"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return ChangesResponse[dto.Flag]{}, &ProtocolError{Err: err}
	}

	flags := make([]dto.Flag, 0, len(wire.Splits))
	for _, w := range wire.Splits {
		flags = append(flags, w.toDTO())
	}
	return ChangesResponse[dto.Flag]{Items: flags, Since: wire.Since, Till: wire.Till}, nil
}

// SegmentChanges implements Backend.
func (b *HTTPBackend) SegmentChanges(ctx context.Context, name string, since int64) (SegmentChangesResult, error) {
	u := fmt.Sprintf("%s/segmentChanges/%s?since=%d", b.baseURL, url.PathEscape(name), since)
	resp, err := b.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return SegmentChangesResult{}, &TransientError{Err: err}
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return SegmentChangesResult{}, err
	}

	var wire struct {
		Name    string   `json:"name"`
		Added   []string `json:"added"`
		Removed []string `json:"removed"`
		Since   int64    `json:"since"`
		Till    int64    `json:"till"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return SegmentChangesResult{}, &ProtocolError{Err: err}
	}
	return SegmentChangesResult{Name: wire.Name, Added: wire.Added, Removed: wire.Removed, Since: wire.Since, Till: wire.Till}, nil
}

// Auth implements Backend.
func (b *HTTPBackend) Auth(ctx context.Context) (AuthResponse, error) {
	u := b.authURL + "/auth"
	resp, err := b.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return AuthResponse{}, &TransientError{Err: err}
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return AuthResponse{}, err
	}

	var wire struct {
		PushEnabled bool     `json:"pushEnabled"`
		Token       string   `json:"token"`
		Expiration  int64    `json:"expiration"`
		Channels    []string `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return AuthResponse{}, &ProtocolError{Err: err}
	}

	channels, err := channelsFromToken(wire.Token)
	if err != nil || len(channels) == 0 {
		// The token carried no usable capability claims; fall back to
		// the response's bare channel list, without occupancy metadata.
		if err != nil {
			b.logger.Warn("could not decode token capabilities", "operation", "transport.HTTPBackend.Auth", "error", err)
		}
		channels = make([]StreamChannel, 0, len(wire.Channels))
		for _, name := range wire.Channels {
			channels = append(channels, StreamChannel{Name: name})
		}
	}
	return AuthResponse{PushEnabled: wire.PushEnabled, Token: wire.Token, Channels: channels, Expiration: wire.Expiration}, nil
}

// publishersCapability is the per-channel capability that enables
// occupancy monitoring for a channel.
const publishersCapability = "channel-metadata:publishers"

// channelsFromToken decodes the streaming JWT's payload and extracts the
// channel list from its capability claim: a JSON-encoded string mapping
// channel name to a list of capability strings. The signature is not
// verified here; the token is opaque material this client merely relays
// back to the streaming endpoint.
func channelsFromToken(token string) ([]StreamChannel, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("transport: token is not a JWT")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("transport: decode token payload: %w", err)
	}

	var claims struct {
		Capability string `json:"x-ably-capability"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("transport: parse token claims: %w", err)
	}
	if claims.Capability == "" {
		return nil, nil
	}

	var capabilities map[string][]string
	if err := json.Unmarshal([]byte(claims.Capability), &capabilities); err != nil {
		return nil, fmt.Errorf("transport: parse capability claim: %w", err)
	}

	channels := make([]StreamChannel, 0, len(capabilities))
	for name, grants := range capabilities {
		ch := StreamChannel{Name: name}
		for _, grant := range grants {
			if grant == publishersCapability {
				ch.PublisherMetadata = true
			}
		}
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })
	return channels, nil
}

// PostImpressions implements Backend.
func (b *HTTPBackend) PostImpressions(ctx context.Context, impressions []dto.Impression) error {
	grouped := make(map[string][]wireImpression)
	for _, imp := range impressions {
		grouped[imp.Feature] = append(grouped[imp.Feature], wireImpression{
			KeyName:      imp.MatchingKey,
			Treatment:    imp.Treatment,
			Time:         imp.Timestamp.UnixMilli(),
			ChangeNumber: imp.ChangeNumber,
			Label:        imp.Label,
			BucketingKey: imp.BucketingKey,
		})
	}
	batches := make([]wireImpressionBatch, 0, len(grouped))
	for feature, keys := range grouped {
		batches = append(batches, wireImpressionBatch{TestName: feature, KeyImpressions: keys})
	}
	return b.postJSON(ctx, b.eventsURL+"/testImpressions/bulk", batches)
}

// PostEvents implements Backend.
func (b *HTTPBackend) PostEvents(ctx context.Context, events []dto.Event) error {
	wire := make([]wireEvent, 0, len(events))
	for _, e := range events {
		wire = append(wire, wireEvent{
			Key:             e.Key,
			TrafficTypeName: e.TrafficType,
			EventTypeID:     e.EventType,
			Value:           e.Value,
			Timestamp:       e.Timestamp.UnixMilli(),
			Properties:      e.Properties,
		})
	}
	return b.postJSON(ctx, b.eventsURL+"/events/bulk", wire)
}

// PostTelemetry implements Backend.
func (b *HTTPBackend) PostTelemetry(ctx context.Context, counters map[string]int64, gauges map[string]float64, latencies map[string][23]int64) error {
	payload := map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"latencies":  latencies,
		"capturedAt": time.Now().UnixMilli(),
	}
	return b.postJSON(ctx, b.telemetryURL+"/v1/metrics/usage", payload)
}

func (b *HTTPBackend) postJSON(ctx context.Context, u string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &ProtocolError{Err: err}
	}
	resp, err := b.do(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		b.logger.Warn("backend rejected batch", "operation", "transport.HTTPBackend.postJSON", "url", u, "status", strconv.Itoa(resp.StatusCode))
		return err
	}
	return nil
}
