package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sift/internal/queue"
	"sift/internal/testsupport"
)

func TestQueueStatusEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueStatusListsEvents(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueue(t, env.cfg,
		queue.CapturedEvent{Type: "page_view", URL: "https://example.com/watch/1"},
		queue.CapturedEvent{Type: "signals", URL: "https://example.com/watch/1"},
	)

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "page_view")
	requireContains(t, out, "signals")
	requireContains(t, out, "2 event(s) queued")
}

func TestQueueClearRequiresForce(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueue(t, env.cfg, queue.CapturedEvent{Type: "page_view", URL: "https://example.com"})

	_, _, err := runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err == nil {
		t.Fatal("expected clear without --force to fail")
	}
	requireContains(t, err.Error(), "--force")

	out, _, err := runCLI(t, []string{"queue", "clear", "--force"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --force: %v", err)
	}
	requireContains(t, out, "Dropped 1 event(s)")

	out, _, err = runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueSyncDeliversBatch(t *testing.T) {
	var received int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode batch: %v", err)
		}
		received = len(body.Events)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accepted": received,
			"rejected": 0,
		})
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithCollectorURL(srv.URL))
	seedQueue(t, env.cfg,
		queue.CapturedEvent{Type: "page_view", URL: "https://example.com/a"},
		queue.CapturedEvent{Type: "page_view", URL: "https://example.com/b"},
	)

	out, _, err := runCLI(t, []string{"queue", "sync"}, env.configPath)
	if err != nil {
		t.Fatalf("queue sync: %v", err)
	}
	requireContains(t, out, "Synced 2 event(s)")
	requireContains(t, out, "0 remaining")
	if received != 2 {
		t.Fatalf("expected collector to receive 2 events, got %d", received)
	}
}

func TestQueueSyncEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "sync"}, env.configPath)
	if err != nil {
		t.Fatalf("queue sync: %v", err)
	}
	requireContains(t, out, "nothing to sync")
}
