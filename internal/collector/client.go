// Package collector implements the HTTP client for the remote collector:
// batched event delivery plus audio and visual fingerprint matching. The
// queue consumes the client through the Sink contract; the orchestrator uses
// Matcher.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sift/internal/fingerprint"
	"sift/internal/queue"
)

// ErrUnavailable reports that the collector could not be reached or answered
// with a server-side failure. Batches hitting it are retried on a later
// cycle.
var ErrUnavailable = errors.New("collector unavailable")

// Match is one fingerprint lookup hit.
type Match struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
	Title  string  `json:"title"`
}

// Matcher resolves fingerprints to known items.
type Matcher interface {
	MatchAudio(ctx context.Context, fp fingerprint.AudioFingerprint) ([]Match, error)
	MatchVisual(ctx context.Context, sig fingerprint.VisualSignature) ([]Match, error)
}

// Client talks to the collector API.
type Client struct {
	baseURL       string
	apiToken      string
	sessionID     string
	clientVersion string
	httpClient    *http.Client
}

var (
	_ queue.Sink = (*Client)(nil)
	_ Matcher    = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSessionID pins the session identifier instead of generating one.
func WithSessionID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// WithClientVersion sets the version string reported with each batch.
func WithClientVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.clientVersion = version
		}
	}
}

// New creates a collector client. apiToken may be empty for unauthenticated
// deployments.
func New(baseURL, apiToken string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("collector base url required")
	}
	client := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiToken:      strings.TrimSpace(apiToken),
		sessionID:     uuid.NewString(),
		clientVersion: "sift/dev",
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SessionID returns the identifier attached to every submitted batch.
func (c *Client) SessionID() string { return c.sessionID }

type batchRequest struct {
	Events        []queue.CapturedEvent `json:"events"`
	SessionID     string                `json:"session_id"`
	ClientVersion string                `json:"client_version"`
}

type batchResponse struct {
	Accepted     int      `json:"accepted"`
	Rejected     int      `json:"rejected"`
	CreatedItems []string `json:"created_items"`
}

// SubmitBatch delivers one ordered batch. The response's accepted and
// rejected counts are positional over the batch.
func (c *Client) SubmitBatch(ctx context.Context, events []queue.CapturedEvent) (queue.BatchResult, error) {
	if len(events) == 0 {
		return queue.BatchResult{}, nil
	}
	var payload batchResponse
	err := c.post(ctx, "/api/events/batch", batchRequest{
		Events:        events,
		SessionID:     c.sessionID,
		ClientVersion: c.clientVersion,
	}, &payload)
	if err != nil {
		return queue.BatchResult{}, err
	}
	return queue.BatchResult{
		Accepted:     payload.Accepted,
		Rejected:     payload.Rejected,
		CreatedItems: payload.CreatedItems,
	}, nil
}

type audioMatchRequest struct {
	Hash       string  `json:"hash"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	PeakCount  int     `json:"peak_count"`
}

type visualMatchRequest struct {
	Hash   string `json:"hash"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type matchResponse struct {
	Matches []Match `json:"matches"`
}

// MatchAudio looks up an audio fingerprint.
func (c *Client) MatchAudio(ctx context.Context, fp fingerprint.AudioFingerprint) ([]Match, error) {
	var payload matchResponse
	err := c.post(ctx, "/api/match/audio", audioMatchRequest{
		Hash:       fp.Hash,
		Duration:   fp.Duration,
		SampleRate: fp.SampleRate,
		PeakCount:  fp.PeakCount,
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.Matches, nil
}

// MatchVisual looks up a visual signature.
func (c *Client) MatchVisual(ctx context.Context, sig fingerprint.VisualSignature) ([]Match, error) {
	var payload matchResponse
	err := c.post(ctx, "/api/match/visual", visualMatchRequest{
		Hash:   sig.Hash,
		Width:  sig.Width,
		Height: sig.Height,
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.Matches, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("collector %s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
