package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sift/internal/adapter"
	"sift/internal/collector"
	"sift/internal/engagement"
	"sift/internal/fingerprint"
	"sift/internal/logging"
	"sift/internal/page"
	"sift/internal/queue"
)

// Event types the orchestrator itself produces.
const (
	eventPageView = "page_view"
	eventSignals  = "signals"
)

// Options carries the collaborators and switches for one orchestrator.
type Options struct {
	Registry *adapter.Registry
	Observer page.Observer
	Queue    *queue.Queue
	// Matcher resolves fingerprints remotely. Optional.
	Matcher collector.Matcher
	Logger  *slog.Logger

	EngagementEnabled  bool
	FingerprintEnabled bool
	SampleRate         int
	AudioBufferSeconds int

	Clock func() time.Time
}

// Orchestrator drives the capture layers for exactly one page navigation.
// It is created per navigation and torn down by Finalize; it is never
// reused.
type Orchestrator struct {
	observer page.Observer
	registry *adapter.Registry
	q        *queue.Queue
	matcher  collector.Matcher
	logger   *slog.Logger
	clock    func() time.Time

	engagementEnabled  bool
	fingerprintEnabled bool

	tracker *engagement.Tracker
	audio   *fingerprint.AudioEngine
	visual  *fingerprint.VisualEngine

	mu         sync.Mutex
	adapter    adapter.Adapter
	isFallback bool
	pageCtx    PageContext
	lastMeta   *adapter.Metadata

	unsubscribe func()
	stopEvents  func()
	pumpCancel  context.CancelFunc
	pumpWG      sync.WaitGroup

	finalizeOnce sync.Once
	finalSignals CollectedSignals
}

// NewOrchestrator builds an orchestrator for url. Start must be called
// before any collection.
func NewOrchestrator(url string, opts Options) (*Orchestrator, error) {
	if opts.Registry == nil || opts.Observer == nil || opts.Queue == nil {
		return nil, errors.New("capture: registry, observer, and queue are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	o := &Orchestrator{
		observer:           opts.Observer,
		registry:           opts.Registry,
		q:                  opts.Queue,
		matcher:            opts.Matcher,
		logger:             logger,
		clock:              clock,
		engagementEnabled:  opts.EngagementEnabled,
		fingerprintEnabled: opts.FingerprintEnabled,
		visual:             fingerprint.NewVisualEngine(),
		pageCtx: PageContext{
			SessionID: uuid.NewString(),
			URL:       url,
		},
	}
	if opts.EngagementEnabled {
		o.tracker = engagement.NewTracker(engagement.WithClock(clock))
	}
	if opts.FingerprintEnabled {
		o.audio = fingerprint.NewAudioEngine(opts.SampleRate, opts.AudioBufferSeconds)
	}
	return o, nil
}

// Context returns a copy of the current page context.
func (o *Orchestrator) Context() PageContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pageCtx
}

// Start resolves the adapter, runs the first extraction, wires event flow,
// and records the page view. Identification failures degrade rather than
// abort; only a queue persist failure is returned.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	o.pageCtx.StartedAt = o.clock().UTC()
	url := o.pageCtx.URL
	o.mu.Unlock()

	a := o.registry.Find(url)
	isFallback := a == o.registry.Fallback()
	ic := adapter.InitContext{
		Observer: o.observer,
		Logger:   logging.NewComponentLogger(o.logger, a.ID()),
	}
	if err := a.Init(ctx, ic); err != nil {
		o.logger.Error("adapter init failed, continuing without layer 1",
			logging.String(logging.FieldPlatform, a.ID()),
			logging.Error(err))
		a = nil
	}

	var meta *adapter.Metadata
	if a != nil {
		var err error
		meta, err = a.ExtractMetadata(ctx)
		if err != nil {
			o.logger.Warn("metadata extraction failed",
				logging.String(logging.FieldPlatform, a.ID()),
				logging.Error(err))
		}
	}

	o.mu.Lock()
	o.adapter = a
	o.isFallback = isFallback
	if a != nil {
		o.pageCtx.Platform = a.ID()
	}
	if meta != nil {
		o.lastMeta = meta
		o.pageCtx.ContentID = meta.ContentID
	}
	sessionCtx := o.pageCtx
	o.mu.Unlock()

	if a != nil {
		o.unsubscribe = a.Subscribe(o.forwardAdapterEvent)
		if err := a.StartCapture(); err != nil && !errors.Is(err, adapter.ErrAlreadyCapturing) {
			o.logger.Warn("capture activation failed",
				logging.String(logging.FieldPlatform, a.ID()),
				logging.Error(err))
		}
	}

	o.startObserverPump()
	o.startAudioPump(ctx)

	payload := map[string]any{"platform": sessionCtx.Platform}
	if meta != nil {
		payload["title"] = meta.Title
		payload["content_type"] = string(meta.ContentType)
	}
	if err := o.q.Enqueue(ctx, queue.CapturedEvent{
		Type:      eventPageView,
		Timestamp: sessionCtx.StartedAt,
		URL:       url,
		ItemID:    sessionCtx.ContentID,
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("record page view: %w", err)
	}

	o.logger.Info("capture started",
		logging.String(logging.FieldSessionID, sessionCtx.SessionID),
		logging.String(logging.FieldPlatform, sessionCtx.Platform),
		logging.String(logging.FieldURL, url),
		logging.String(logging.FieldContentID, sessionCtx.ContentID))
	return nil
}

// forwardAdapterEvent funnels one adapter event into the queue.
func (o *Orchestrator) forwardAdapterEvent(ev adapter.Event) {
	o.mu.Lock()
	url := o.pageCtx.URL
	itemID := o.pageCtx.ContentID
	o.mu.Unlock()

	if ev.ContentID != "" {
		itemID = ev.ContentID
	}
	err := o.q.Enqueue(context.Background(), queue.CapturedEvent{
		Type:      ev.Type,
		Timestamp: ev.At,
		URL:       url,
		ItemID:    itemID,
		Payload:   ev.Payload,
	})
	if err != nil {
		o.logger.Error("event enqueue failed",
			logging.String(logging.FieldEventType, ev.Type),
			logging.Error(err))
	}
}

// startObserverPump feeds page events into the engagement tracker.
func (o *Orchestrator) startObserverPump() {
	if o.tracker == nil {
		return
	}
	events, stop := o.observer.Events()
	o.stopEvents = stop
	o.pumpWG.Add(1)
	go func() {
		defer o.pumpWG.Done()
		for ev := range events {
			o.tracker.Observe(ev)
		}
	}()
}

// startAudioPump streams PCM from tappable media elements into the audio
// ring. Capture unavailability is logged and skipped, never surfaced.
func (o *Orchestrator) startAudioPump(ctx context.Context) {
	if o.audio == nil {
		return
	}
	elems, err := o.observer.MediaElements(ctx)
	if err != nil {
		o.logger.Debug("media discovery failed, no audio capture", logging.Error(err))
		return
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	o.pumpCancel = cancel
	for _, el := range elems {
		if el.Audio == nil {
			continue
		}
		tap := el.Audio
		o.pumpWG.Add(1)
		go func() {
			defer o.pumpWG.Done()
			for {
				chunk, err := tap.ReadChunk(pumpCtx)
				if err != nil {
					if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
						o.logger.Debug("audio tap closed", logging.Error(err))
					}
					return
				}
				o.audio.Append(chunk)
			}
		}()
	}
}

// CollectSignals gathers every layer's current output into one bundle. The
// confidence budget is additive: +0.4 for an active adapter, +0.2 for
// enabled engagement tracking, and +0.3 when escalated fingerprinting
// produced at least one fingerprint. A failing layer contributes nothing and
// never aborts the others.
func (o *Orchestrator) CollectSignals(ctx context.Context) CollectedSignals {
	signals := CollectedSignals{
		Timestamp: o.clock().UTC(),
		URL:       o.Context().URL,
	}
	confidence := 0.0

	confidence += o.collectAdapter(ctx, &signals)
	confidence += o.collectEngagement(&signals)
	confidence += o.collectFingerprints(ctx, &signals)

	if confidence > confidenceCeiling {
		confidence = confidenceCeiling
	}
	signals.Confidence = confidence
	return signals
}

func (o *Orchestrator) collectAdapter(ctx context.Context, signals *CollectedSignals) float64 {
	o.mu.Lock()
	a := o.adapter
	cached := o.lastMeta
	o.mu.Unlock()
	if a == nil {
		return 0
	}

	meta, err := a.ExtractMetadata(ctx)
	switch {
	case err != nil:
		o.logger.Warn("metadata re-extraction failed, using cached result",
			logging.String(logging.FieldPlatform, a.ID()),
			logging.Error(err))
		meta = cached
	case meta == nil:
		meta = cached
	}

	if meta != nil {
		o.mu.Lock()
		o.lastMeta = meta
		if o.pageCtx.ContentID == "" {
			o.pageCtx.ContentID = meta.ContentID
		}
		o.mu.Unlock()
		signals.Metadata = meta
	}

	switch a.State() {
	case adapter.StateInitialized, adapter.StateCapturing, adapter.StateStopped:
		return confidenceAdapter
	}
	return 0
}

func (o *Orchestrator) collectEngagement(signals *CollectedSignals) float64 {
	if o.tracker == nil {
		return 0
	}
	summary := o.tracker.Snapshot()
	signals.Engagement = &summary
	return confidenceEngagement
}

// collectFingerprints applies the escalate-on-uncertainty rule: Layer 3 runs
// only when no adapter matched or the matched adapter failed to resolve a
// content id.
func (o *Orchestrator) collectFingerprints(ctx context.Context, signals *CollectedSignals) float64 {
	o.mu.Lock()
	escalate := o.adapter == nil || o.pageCtx.ContentID == ""
	o.mu.Unlock()
	if !escalate || !o.fingerprintEnabled {
		return 0
	}
	signals.Escalated = true

	if o.audio != nil {
		if fp := o.audio.Fingerprint(); fp.PeakCount > 0 {
			signals.Audio = &fp
		}
	}
	signals.Visual = o.captureVisual(ctx)

	if signals.Audio == nil && signals.Visual == nil {
		return 0
	}
	o.resolveMatches(ctx, signals)
	return confidenceFingerprint
}

// captureVisual prefers a live video frame and falls back to the viewport
// proxy image.
func (o *Orchestrator) captureVisual(ctx context.Context) *fingerprint.VisualSignature {
	elems, err := o.observer.MediaElements(ctx)
	if err == nil {
		for _, el := range elems {
			if el.Kind != page.MediaVideo || el.Frames == nil {
				continue
			}
			frame, grabErr := el.Frames.GrabFrame(ctx)
			if grabErr != nil {
				o.logger.Debug("frame grab failed", logging.Error(grabErr))
				continue
			}
			if sig := o.visual.FromFrame(frame); sig != nil {
				return sig
			}
		}
	}

	shot, err := o.observer.Screenshot(ctx)
	if err != nil {
		o.logger.Debug("screenshot unavailable", logging.Error(err))
		return nil
	}
	return o.visual.FromViewport(shot)
}

// resolveMatches asks the collector to identify the fingerprints and adopts
// the strongest hit as the content id when none was resolved locally.
func (o *Orchestrator) resolveMatches(ctx context.Context, signals *CollectedSignals) {
	if o.matcher == nil {
		return
	}

	var matches []collector.Match
	if signals.Audio != nil {
		found, err := o.matcher.MatchAudio(ctx, *signals.Audio)
		if err != nil {
			o.logger.Debug("audio match failed", logging.Error(err))
		} else {
			matches = append(matches, found...)
		}
	}
	if signals.Visual != nil {
		found, err := o.matcher.MatchVisual(ctx, *signals.Visual)
		if err != nil {
			o.logger.Debug("visual match failed", logging.Error(err))
		} else {
			matches = append(matches, found...)
		}
	}
	signals.Matches = matches

	best := -1
	for i, m := range matches {
		if m.ItemID == "" {
			continue
		}
		if best < 0 || m.Score > matches[best].Score {
			best = i
		}
	}
	if best < 0 {
		return
	}
	o.mu.Lock()
	if o.pageCtx.ContentID == "" {
		o.pageCtx.ContentID = matches[best].ItemID
	}
	o.mu.Unlock()
}

// Finalize runs layer collection exactly once more, flushes the final
// signal bundle into the queue, and tears the pipeline down. Safe to call
// multiple times; later calls return the first result.
func (o *Orchestrator) Finalize(ctx context.Context) CollectedSignals {
	o.finalizeOnce.Do(func() {
		signals := o.CollectSignals(ctx)
		o.finalSignals = signals

		payload := map[string]any{"confidence": signals.Confidence}
		if signals.Engagement != nil {
			payload["engagement"] = *signals.Engagement
		}
		if signals.Audio != nil {
			payload["audio_fingerprint"] = signals.Audio.Hash
		}
		if signals.Visual != nil {
			payload["visual_hash"] = signals.Visual.Hash
		}
		sessionCtx := o.Context()
		if err := o.q.Enqueue(ctx, queue.CapturedEvent{
			Type:      eventSignals,
			Timestamp: signals.Timestamp,
			URL:       sessionCtx.URL,
			ItemID:    sessionCtx.ContentID,
			Payload:   payload,
		}); err != nil {
			o.logger.Error("final signal enqueue failed", logging.Error(err))
		}

		o.teardown()
		o.logger.Info("capture finalized",
			logging.String(logging.FieldSessionID, sessionCtx.SessionID),
			logging.String(logging.FieldContentID, sessionCtx.ContentID),
			logging.Float64("confidence", signals.Confidence))
	})
	return o.finalSignals
}

func (o *Orchestrator) teardown() {
	o.mu.Lock()
	a := o.adapter
	o.adapter = nil
	o.mu.Unlock()

	if a != nil {
		a.StopCapture()
	}
	if o.unsubscribe != nil {
		o.unsubscribe()
	}
	if o.stopEvents != nil {
		o.stopEvents()
	}
	if o.pumpCancel != nil {
		o.pumpCancel()
	}
	o.pumpWG.Wait()
	if a != nil {
		a.Destroy()
	}
}
