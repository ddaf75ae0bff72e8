package adapter

import (
	"log/slog"
	"sync"
	"time"

	"sift/internal/logging"
	"sift/internal/page"
)

// Base implements the shared lifecycle state machine and subscriber plumbing
// for concrete adapters. Embed it and call the lifecycle helpers from the
// adapter's own Init/Destroy implementations.
type Base struct {
	mu       sync.Mutex
	state    State
	subs     map[int]func(Event)
	nextSub  int
	logger   *slog.Logger
	observer page.Observer
}

// BindPage records collaborators and moves the adapter to initialized.
func (b *Base) BindPage(ic InitContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDestroyed {
		return ErrDestroyed
	}
	b.observer = ic.Observer
	b.logger = ic.Logger
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	if b.subs == nil {
		b.subs = make(map[int]func(Event))
	}
	b.state = StateInitialized
	return nil
}

// Observer returns the bound page observer.
func (b *Base) Observer() page.Observer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.observer
}

// Logger returns the bound logger, never nil.
func (b *Base) Logger() *slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.logger == nil {
		return logging.NewNop()
	}
	return b.logger
}

// State returns the current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// StartCapture enables event emission. Re-activation returns
// ErrAlreadyCapturing so callers can treat it as idempotent.
func (b *Base) StartCapture() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateDestroyed:
		return ErrDestroyed
	case StateCapturing:
		return ErrAlreadyCapturing
	}
	b.state = StateCapturing
	return nil
}

// StopCapture disables event emission.
func (b *Base) StopCapture() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateCapturing {
		b.state = StateStopped
	}
}

// Teardown drops all subscribers and marks the adapter destroyed.
func (b *Base) Teardown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
	b.observer = nil
	b.state = StateDestroyed
}

// Subscribe registers an event callback and returns its unsubscribe handle.
func (b *Base) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil || b.state == StateDestroyed {
		return func() {}
	}
	if b.subs == nil {
		b.subs = make(map[int]func(Event))
	}
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Emit delivers an event to every subscriber. Emission is gated on the
// capturing state; a panicking subscriber is logged and skipped so one faulty
// callback cannot block the rest.
func (b *Base) Emit(ev Event) {
	b.mu.Lock()
	if b.state != StateCapturing {
		b.mu.Unlock()
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	callbacks := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		callbacks = append(callbacks, fn)
	}
	logger := b.logger
	b.mu.Unlock()

	for _, fn := range callbacks {
		b.safeInvoke(logger, fn, ev)
	}
}

func (b *Base) safeInvoke(logger *slog.Logger, fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("event subscriber panicked",
				logging.String(logging.FieldEventType, ev.Type),
				logging.Any("panic", r))
		}
	}()
	fn(ev)
}
