package capture

import (
	"time"

	"sift/internal/adapter"
	"sift/internal/collector"
	"sift/internal/engagement"
	"sift/internal/fingerprint"
)

// Confidence contributions per layer. Additive, never normalized; the three
// constants bound the total at 0.9 by construction.
const (
	confidenceAdapter     = 0.4
	confidenceEngagement  = 0.2
	confidenceFingerprint = 0.3
	confidenceCeiling     = 0.9
)

// PageContext identifies one navigation. The orchestrator owns it
// exclusively and replaces it wholesale on navigation.
type PageContext struct {
	SessionID string
	URL       string
	Platform  string
	ContentID string
	StartedAt time.Time
}

// Resolved reports whether a content id was established.
func (p PageContext) Resolved() bool { return p.ContentID != "" }

// CollectedSignals is the merged output of one collection run across all
// layers. Absent layers leave their fields nil.
type CollectedSignals struct {
	Timestamp  time.Time
	URL        string
	Metadata   *adapter.Metadata
	Engagement *engagement.Summary
	Audio      *fingerprint.AudioFingerprint
	Visual     *fingerprint.VisualSignature
	Matches    []collector.Match
	Escalated  bool
	Confidence float64
}
