package capture_test

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"sift/internal/adapter"
	"sift/internal/capture"
	"sift/internal/collector"
	"sift/internal/fingerprint"
	"sift/internal/page"
	"sift/internal/queue"
)

type stubAdapter struct {
	adapter.Base
	id   string
	meta *adapter.Metadata
}

func (s *stubAdapter) ID() string        { return s.id }
func (s *stubAdapter) Domains() []string { return []string{s.id + ".example"} }
func (s *stubAdapter) CanHandle(string) bool {
	return false
}
func (s *stubAdapter) Init(ctx context.Context, ic adapter.InitContext) error {
	return s.BindPage(ic)
}
func (s *stubAdapter) Destroy() { s.Teardown() }
func (s *stubAdapter) ExtractMetadata(context.Context) (*adapter.Metadata, error) {
	return s.meta, nil
}
func (s *stubAdapter) PlaybackState(context.Context) (*page.PlaybackState, error) {
	return nil, nil
}

type memPersister struct {
	saved []queue.QueuedEvent
}

func (m *memPersister) Load(context.Context) ([]queue.QueuedEvent, error) { return nil, nil }
func (m *memPersister) Save(_ context.Context, events []queue.QueuedEvent) error {
	m.saved = append([]queue.QueuedEvent(nil), events...)
	return nil
}
func (m *memPersister) Clear(context.Context) error { return nil }

type stubMatcher struct {
	audioMatches  []collector.Match
	visualMatches []collector.Match
}

func (m *stubMatcher) MatchAudio(context.Context, fingerprint.AudioFingerprint) ([]collector.Match, error) {
	return m.audioMatches, nil
}
func (m *stubMatcher) MatchVisual(context.Context, fingerprint.VisualSignature) ([]collector.Match, error) {
	return m.visualMatches, nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 0, A: 255})
		}
	}
	return img
}

type fixture struct {
	registry *adapter.Registry
	observer *page.StaticObserver
	q        *queue.Queue
	store    *memPersister
	platform *stubAdapter
}

func newFixture(t *testing.T, meta *adapter.Metadata) *fixture {
	t.Helper()
	registry := adapter.NewRegistry()
	platform := &stubAdapter{id: "videohub", meta: meta}
	if err := registry.Register(platform); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	registry.RegisterFallback(&stubAdapter{id: "fallback"})

	doc, err := page.ParseDocument("https://videohub.example/watch/1", strings.NewReader("<html></html>"))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	observer := page.NewStaticObserver(doc)

	store := &memPersister{}
	q, err := queue.New(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("queue.New failed: %v", err)
	}
	t.Cleanup(q.Close)

	return &fixture{registry: registry, observer: observer, q: q, store: store, platform: platform}
}

func newOrchestrator(t *testing.T, f *fixture, opts capture.Options) *capture.Orchestrator {
	t.Helper()
	opts.Registry = f.registry
	opts.Observer = f.observer
	opts.Queue = f.q
	o, err := capture.NewOrchestrator("https://videohub.example/watch/1", opts)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	t.Cleanup(func() { o.Finalize(context.Background()) })
	return o
}

// requireConfidence tolerates float accumulation in the additive score.
func requireConfidence(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Confidence = %v, want %v", got, want)
	}
}

func TestResolvedContentSkipsEscalation(t *testing.T) {
	f := newFixture(t, &adapter.Metadata{ContentID: "vid-1", Title: "Known"})
	f.observer.SetScreenshot(testImage())
	o := newOrchestrator(t, f, capture.Options{EngagementEnabled: true, FingerprintEnabled: true})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	signals := o.CollectSignals(context.Background())

	if signals.Escalated {
		t.Fatal("should not escalate with a resolved content id")
	}
	if signals.Visual != nil || signals.Audio != nil {
		t.Fatalf("fingerprints must not run without escalation: %+v", signals)
	}
	requireConfidence(t, signals.Confidence, 0.6)
	if signals.Metadata == nil || signals.Metadata.ContentID != "vid-1" {
		t.Fatalf("unexpected metadata %+v", signals.Metadata)
	}
}

func TestUnresolvedContentEscalates(t *testing.T) {
	// The adapter matches but resolves no content id, so Layer 3 must
	// activate despite Layer 1 being present.
	f := newFixture(t, &adapter.Metadata{Title: "Mystery Clip"})
	f.observer.SetScreenshot(testImage())
	o := newOrchestrator(t, f, capture.Options{EngagementEnabled: true, FingerprintEnabled: true})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	signals := o.CollectSignals(context.Background())

	if !signals.Escalated {
		t.Fatal("expected escalation for unresolved content id")
	}
	if signals.Visual == nil {
		t.Fatal("expected a viewport-proxy signature")
	}
	if signals.Visual.Kind != fingerprint.KindViewportProxy {
		t.Fatalf("Kind = %q, want viewport-proxy", signals.Visual.Kind)
	}
	requireConfidence(t, signals.Confidence, 0.9)
}

func TestConfidenceMonotonicInContributingLayers(t *testing.T) {
	// Same unresolved page, but no frame, screenshot, or audio available:
	// Layer 3 activates yet contributes nothing.
	f := newFixture(t, &adapter.Metadata{Title: "Mystery Clip"})
	o := newOrchestrator(t, f, capture.Options{EngagementEnabled: true, FingerprintEnabled: true})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	without := o.CollectSignals(context.Background())
	requireConfidence(t, without.Confidence, 0.6)
	if !without.Escalated {
		t.Fatal("expected escalation even when capture produced nothing")
	}

	f.observer.SetScreenshot(testImage())
	with := o.CollectSignals(context.Background())
	if with.Confidence < without.Confidence {
		t.Fatalf("confidence must be monotonic: %v < %v", with.Confidence, without.Confidence)
	}
	requireConfidence(t, with.Confidence, 0.9)
}

func TestEngagementDisabledDropsContribution(t *testing.T) {
	f := newFixture(t, &adapter.Metadata{ContentID: "vid-1"})
	o := newOrchestrator(t, f, capture.Options{EngagementEnabled: false})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	signals := o.CollectSignals(context.Background())
	requireConfidence(t, signals.Confidence, 0.4)
	if signals.Engagement != nil {
		t.Fatalf("unexpected engagement summary %+v", signals.Engagement)
	}
}

func TestMatcherResolvesContentID(t *testing.T) {
	f := newFixture(t, &adapter.Metadata{Title: "Mystery Clip"})
	f.observer.SetScreenshot(testImage())
	matcher := &stubMatcher{visualMatches: []collector.Match{
		{ItemID: "weak", Score: 0.3},
		{ItemID: "item-42", Score: 0.95, Title: "Known Clip"},
	}}
	o := newOrchestrator(t, f, capture.Options{FingerprintEnabled: true, Matcher: matcher})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	signals := o.CollectSignals(context.Background())

	if len(signals.Matches) != 2 {
		t.Fatalf("matches = %+v", signals.Matches)
	}
	if got := o.Context().ContentID; got != "item-42" {
		t.Fatalf("ContentID = %q, want strongest match adopted", got)
	}
}

func TestStartRecordsPageView(t *testing.T) {
	f := newFixture(t, &adapter.Metadata{ContentID: "vid-1", Title: "Known"})
	o := newOrchestrator(t, f, capture.Options{})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	events := f.q.Events()
	if len(events) != 1 || events[0].Event.Type != "page_view" {
		t.Fatalf("queue = %+v, want one page_view", events)
	}
	if events[0].Event.ItemID != "vid-1" {
		t.Fatalf("ItemID = %q, want vid-1", events[0].Event.ItemID)
	}
	if events[0].Event.Payload["title"] != "Known" {
		t.Fatalf("payload = %v", events[0].Event.Payload)
	}
}

func TestAdapterEventsFunnelIntoQueue(t *testing.T) {
	f := newFixture(t, &adapter.Metadata{ContentID: "vid-1"})
	o := newOrchestrator(t, f, capture.Options{})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.platform.Emit(adapter.Event{Type: "playback_play", Payload: map[string]any{"position": 1.0}})

	var found bool
	for _, qe := range f.q.Events() {
		if qe.Event.Type == "playback_play" && qe.Event.ItemID == "vid-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("playback event not funneled: %+v", f.q.Events())
	}
}

func TestFinalizeRunsOnceAndTearsDown(t *testing.T) {
	f := newFixture(t, &adapter.Metadata{ContentID: "vid-1"})
	o := newOrchestrator(t, f, capture.Options{EngagementEnabled: true})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	first := o.Finalize(context.Background())
	second := o.Finalize(context.Background())

	if first.Timestamp != second.Timestamp {
		t.Fatal("Finalize must collect exactly once")
	}
	if f.platform.State() != adapter.StateDestroyed {
		t.Fatalf("adapter state = %v, want destroyed", f.platform.State())
	}

	signalEvents := 0
	for _, qe := range f.q.Events() {
		if qe.Event.Type == "signals" {
			signalEvents++
		}
	}
	if signalEvents != 1 {
		t.Fatalf("signal events = %d, want exactly 1", signalEvents)
	}
}
