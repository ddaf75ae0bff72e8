package collector_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sift/internal/collector"
	"sift/internal/fingerprint"
	"sift/internal/queue"
)

func TestSubmitBatch(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accepted":      2,
			"rejected":      1,
			"created_items": []string{"item-1"},
		})
	}))
	defer server.Close()

	client, err := collector.New(server.URL, "token-123",
		collector.WithSessionID("session-9"),
		collector.WithClientVersion("sift/1.2.3"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	events := []queue.CapturedEvent{
		{Type: "page_view", Timestamp: time.Now(), URL: "https://example.com"},
		{Type: "playback_play", URL: "https://example.com/v", ItemID: "it-1"},
		{Type: "rating", URL: "https://example.com/v"},
	}
	res, err := client.SubmitBatch(context.Background(), events)
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}

	if res.Accepted != 2 || res.Rejected != 1 {
		t.Fatalf("result = %+v, want accepted 2 rejected 1", res)
	}
	if len(res.CreatedItems) != 1 || res.CreatedItems[0] != "item-1" {
		t.Fatalf("created items = %v", res.CreatedItems)
	}
	if gotPath != "/api/events/batch" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer token-123" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotBody["session_id"] != "session-9" || gotBody["client_version"] != "sift/1.2.3" {
		t.Fatalf("body = %v", gotBody)
	}
	if sent, ok := gotBody["events"].([]any); !ok || len(sent) != 3 {
		t.Fatalf("events in body = %v", gotBody["events"])
	}
}

func TestSubmitBatchEmptyIsNoop(t *testing.T) {
	client, err := collector.New("http://127.0.0.1:1", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := client.SubmitBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	if res.Accepted != 0 || res.Rejected != 0 {
		t.Fatalf("result = %+v, want zero", res)
	}
}

func TestSubmitBatchTransportFailure(t *testing.T) {
	client, err := collector.New("http://127.0.0.1:1", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.SubmitBatch(context.Background(), []queue.CapturedEvent{{Type: "page_view"}})
	if !errors.Is(err, collector.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSubmitBatchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := collector.New(server.URL, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.SubmitBatch(context.Background(), []queue.CapturedEvent{{Type: "page_view"}})
	if !errors.Is(err, collector.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for 500, got %v", err)
	}
}

func TestSubmitBatchClientErrorIsNotUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := collector.New(server.URL, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.SubmitBatch(context.Background(), []queue.CapturedEvent{{Type: "page_view"}})
	if err == nil || errors.Is(err, collector.ErrUnavailable) {
		t.Fatalf("expected a non-transport error for 400, got %v", err)
	}
}

func TestMatchAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/match/audio" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["hash"] != "abcdef0123456789" || req["sample_rate"] != 44100.0 {
			t.Errorf("request = %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{{"item_id": "it-7", "score": 0.92, "title": "Known Track"}},
		})
	}))
	defer server.Close()

	client, err := collector.New(server.URL, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	matches, err := client.MatchAudio(context.Background(), fingerprint.AudioFingerprint{
		Hash:       "abcdef0123456789",
		Duration:   30,
		SampleRate: 44100,
		PeakCount:  120,
	})
	if err != nil {
		t.Fatalf("MatchAudio failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ItemID != "it-7" || matches[0].Score != 0.92 {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestMatchVisual(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/match/visual" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["width"] != 1280.0 || req["height"] != 720.0 {
			t.Errorf("request = %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"matches": []map[string]any{}})
	}))
	defer server.Close()

	client, err := collector.New(server.URL, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	matches, err := client.MatchVisual(context.Background(), fingerprint.VisualSignature{
		Kind:   fingerprint.KindVideoFrame,
		Hash:   "00ff00ff00ff00ff",
		Width:  1280,
		Height: 720,
	})
	if err != nil {
		t.Fatalf("MatchVisual failed: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("matches = %+v, want none", matches)
	}
}

func TestSessionIDGenerated(t *testing.T) {
	a, err := collector.New("http://example.com", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b, err := collector.New("http://example.com", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a.SessionID() == "" || a.SessionID() == b.SessionID() {
		t.Fatalf("expected distinct generated session ids, got %q and %q", a.SessionID(), b.SessionID())
	}
}
