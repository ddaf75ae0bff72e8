package adapter

import (
	"sync"

	"sift/internal/page"
)

// Event type names produced by the observer bridge. Playback events append
// the page action to the prefix (playback_play, playback_pause, and so on).
const (
	EventTypePlaybackPrefix = "playback_"
	EventTypeInteraction    = "interaction"
	EventTypeVisibility     = "visibility"
)

// BridgeObserverEvents consumes the bound observer's event stream and
// republishes playback, interaction, and visibility observations as adapter
// events. Emission stays gated by the capture state, so the bridge can run
// across stop/start cycles without leaking events. The returned func tears
// the bridge down and waits for the pump goroutine to drain.
func BridgeObserverEvents(b *Base, platform, contentID string) func() {
	obs := b.Observer()
	if obs == nil {
		return func() {}
	}
	events, unsubscribe := obs.Events()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			out, ok := translateEvent(ev)
			if !ok {
				continue
			}
			out.Platform = platform
			out.ContentID = contentID
			b.Emit(out)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			<-done
		})
	}
}

func translateEvent(ev page.Event) (Event, bool) {
	switch ev.Kind {
	case page.EventPlayback:
		return Event{
			Type: EventTypePlaybackPrefix + string(ev.Action),
			At:   ev.At,
			Payload: map[string]any{
				"position": ev.Position,
			},
		}, true
	case page.EventInteraction:
		return Event{
			Type: EventTypeInteraction,
			At:   ev.At,
			Payload: map[string]any{
				"kind": string(ev.Interaction),
			},
		}, true
	case page.EventVisibility:
		return Event{
			Type: EventTypeVisibility,
			At:   ev.At,
			Payload: map[string]any{
				"visible": ev.Visible,
			},
		}, true
	}
	return Event{}, false
}
