// Package page defines the boundary between the capture pipeline and whatever
// host mechanism observes a live web page.
//
// The Observer interface delivers the current rendered document, discovered
// media elements, and a stream of scroll/visibility/interaction/navigation
// events. Document wraps a parsed HTML tree with the lookups adapters need:
// title, meta and Open Graph tags, JSON-LD blocks, and inline script bodies.
//
// The package deliberately knows nothing about adapters or queues; it only
// models what a page looks like and what happens on it.
package page
