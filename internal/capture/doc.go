// Package capture composes the identification layers into one pipeline: the
// platform adapter (Layer 1), engagement tracking (Layer 2), and the
// fingerprint engines (Layer 3, escalated only on uncertainty). The
// orchestrator owns one page context per navigation, merges layer outputs
// into a confidence-weighted signal bundle, and funnels every discrete event
// into the durable queue. Layer failures are caught and logged; the public
// API degrades to partial results instead of propagating them.
package capture
