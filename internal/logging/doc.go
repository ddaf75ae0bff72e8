// Package logging assembles structured slog loggers and formatting helpers
// used across the capture agent.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers plus standardized field keys so
// capture layers tag log lines with session, platform, and content identifiers
// the same way everywhere. A no-op logger is provided for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
