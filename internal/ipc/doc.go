// Package ipc exposes the running agent over JSON-RPC Unix sockets and ships
// the matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// server wraps a Controller implemented by the agent while the client dials
// with a short timeout so CLI commands fail fast when no agent is running.
package ipc
