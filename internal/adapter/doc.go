// Package adapter defines the platform adapter contract and the registry that
// resolves which adapter handles a given page.
//
// An Adapter extracts structured content metadata from a page and emits typed
// playback events while capture is active. The Registry indexes adapters by
// domain, climbs parent domains on miss, falls back to a CanHandle scan, and
// terminates in a mandatory fallback adapter so lookups never come back empty.
//
// Concrete adapters live in subpackages (youtube, soundcloud, generic) and
// embed Base for the shared lifecycle and event plumbing.
package adapter
