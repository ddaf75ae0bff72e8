package page

import (
	"context"
	"image"
	"sync"
)

// StaticObserver serves a fixed document and a caller-driven event stream. It
// backs tests and the CLI inspect path, where no live page instrumentation
// exists.
type StaticObserver struct {
	mu         sync.Mutex
	doc        *Document
	media      []*MediaElement
	screenshot image.Image
	subs       map[int]chan Event
	nextSub    int
	closed     bool
}

// NewStaticObserver wraps a parsed document in an Observer.
func NewStaticObserver(doc *Document) *StaticObserver {
	return &StaticObserver{doc: doc, subs: make(map[int]chan Event)}
}

// SetMedia replaces the media elements reported by the observer.
func (o *StaticObserver) SetMedia(media ...*MediaElement) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.media = media
}

// SetScreenshot sets the viewport proxy image returned by Screenshot.
func (o *StaticObserver) SetScreenshot(img image.Image) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.screenshot = img
}

// SetDocument replaces the served document, simulating a navigation target.
func (o *StaticObserver) SetDocument(doc *Document) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.doc = doc
}

// Emit pushes an event to all subscribers. Slow subscribers are skipped
// rather than blocked on.
func (o *StaticObserver) Emit(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close terminates all subscriber channels.
func (o *StaticObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
}

// Document implements Observer.
func (o *StaticObserver) Document(context.Context) (*Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.doc, nil
}

// MediaElements implements Observer.
func (o *StaticObserver) MediaElements(context.Context) ([]*MediaElement, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*MediaElement, len(o.media))
	copy(out, o.media)
	return out, nil
}

// Events implements Observer.
func (o *StaticObserver) Events() (<-chan Event, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan Event, 64)
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch

	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if sub, ok := o.subs[id]; ok {
			close(sub)
			delete(o.subs, id)
		}
	}
	return ch, cancel
}

// Screenshot implements Observer.
func (o *StaticObserver) Screenshot(context.Context) (image.Image, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.screenshot, nil
}

var _ Observer = (*StaticObserver)(nil)
