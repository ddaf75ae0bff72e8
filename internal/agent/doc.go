// Package agent is the daemon composition root. It owns the adapter
// registry, the durable queue, the collector client, and one capture
// orchestrator per navigation, and it enforces single-instance execution
// with a file lock so two agents never mutate the same queue store.
package agent
