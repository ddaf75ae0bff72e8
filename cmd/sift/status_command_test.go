package main

import (
	"testing"

	"sift/internal/queue"
)

func TestStatusOfflineFallsBackToStore(t *testing.T) {
	env := setupCLITestEnv(t)
	seedQueue(t, env.cfg, queue.CapturedEvent{Type: "page_view", URL: "https://example.com"})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Agent is not running")
	requireContains(t, out, "1 event(s) queued")
}

func TestSignalsRequiresRunningAgent(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"signals"}, env.configPath)
	if err == nil {
		t.Fatal("expected signals without an agent to fail")
	}
	requireContains(t, err.Error(), "no running agent")
}
