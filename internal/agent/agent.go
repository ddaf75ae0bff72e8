package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sift/internal/adapter"
	"sift/internal/adapter/generic"
	"sift/internal/adapter/soundcloud"
	"sift/internal/adapter/youtube"
	"sift/internal/capture"
	"sift/internal/collector"
	"sift/internal/config"
	"sift/internal/ipc"
	"sift/internal/logging"
	"sift/internal/page"
	"sift/internal/queue"
)

const (
	// defaultSampleRate sizes the audio ring when the host does not say.
	defaultSampleRate = 44100

	// shutdownGrace bounds how long Stop waits for an in-flight sync.
	shutdownGrace = 5 * time.Second
)

// BuildRegistry wires the concrete adapters plus the mandatory generic
// fallback.
func BuildRegistry() (*adapter.Registry, error) {
	registry := adapter.NewRegistry()
	if err := registry.Register(youtube.New()); err != nil {
		return nil, fmt.Errorf("register youtube adapter: %w", err)
	}
	if err := registry.Register(soundcloud.New()); err != nil {
		return nil, fmt.Errorf("register soundcloud adapter: %w", err)
	}
	if err := registry.RegisterFallback(generic.New()); err != nil {
		return nil, fmt.Errorf("register generic fallback: %w", err)
	}
	return registry, nil
}

// Agent runs the capture pipeline against one observed page context.
type Agent struct {
	cfg      *config.Config
	logger   *slog.Logger
	observer page.Observer
	registry *adapter.Registry
	store    *queue.Store
	q        *queue.Queue
	client   *collector.Client

	lockPath  string
	lock      *flock.Flock
	ipcServer *ipc.Server

	mu           sync.Mutex
	orchestrator *capture.Orchestrator

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an agent with initialized dependencies.
func New(ctx context.Context, cfg *config.Config, observer page.Observer, logger *slog.Logger) (*Agent, error) {
	if cfg == nil || observer == nil {
		return nil, errors.New("agent requires config and observer")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	registry, err := BuildRegistry()
	if err != nil {
		return nil, err
	}

	store, err := queue.OpenStore(cfg.QueueDBPath())
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	client, err := collector.New(cfg.Collector.BaseURL, cfg.Collector.APIToken)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build collector client: %w", err)
	}

	q, err := queue.New(ctx, store, client,
		queue.WithMaxSize(cfg.Queue.MaxSize),
		queue.WithMaxRetries(cfg.Queue.MaxRetries),
		queue.WithBatchSize(cfg.Queue.BatchSize),
		queue.WithLogger(logging.NewComponentLogger(logger, "queue")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	lockPath := cfg.LockPath()
	return &Agent{
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		registry: registry,
		store:    store,
		q:        q,
		client:   client,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Queue exposes the durable queue, mainly for status surfaces.
func (a *Agent) Queue() *queue.Queue { return a.q }

// Start acquires the instance lock, begins capture for the current page,
// and launches the navigation and sync loops.
func (a *Agent) Start(ctx context.Context) error {
	if a.running.Load() {
		return errors.New("agent already running")
	}

	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another sift agent instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	url := ""
	if doc, docErr := a.observer.Document(runCtx); docErr == nil && doc != nil {
		url = doc.URL()
	}

	// Subscribe before capture begins so a navigation fired right after
	// startup is never lost.
	events, stopEvents := a.observer.Events()

	if err := a.beginCapture(runCtx, url); err != nil {
		stopEvents()
		_ = a.lock.Unlock()
		cancel()
		a.cancel = nil
		return err
	}

	srv, err := ipc.NewServer(runCtx, a.cfg.SocketPath(), a,
		logging.NewComponentLogger(a.logger, "ipc"))
	if err != nil {
		a.logger.Warn("control socket unavailable", logging.Error(err))
	} else {
		srv.Serve()
		a.ipcServer = srv
	}

	a.wg.Add(2)
	go a.navigationLoop(runCtx, events, stopEvents)
	go a.syncLoop(runCtx)

	a.running.Store(true)
	a.logger.Info("sift agent started",
		logging.String("lock", a.lockPath),
		logging.String(logging.FieldURL, url))
	return nil
}

// beginCapture replaces the active orchestrator with a fresh one for url.
func (a *Agent) beginCapture(ctx context.Context, url string) error {
	o, err := capture.NewOrchestrator(url, capture.Options{
		Registry:           a.registry,
		Observer:           a.observer,
		Queue:              a.q,
		Matcher:            a.client,
		Logger:             logging.NewComponentLogger(a.logger, "capture"),
		EngagementEnabled:  a.cfg.Capture.EngagementEnabled,
		FingerprintEnabled: a.cfg.Capture.FingerprintEnabled,
		SampleRate:         defaultSampleRate,
		AudioBufferSeconds: a.cfg.Capture.AudioBufferSeconds,
	})
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}
	if err := o.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	a.mu.Lock()
	a.orchestrator = o
	a.mu.Unlock()
	return nil
}

// navigationLoop finalizes the active orchestrator and starts a new one
// whenever the page navigates. The subscription is established by Start.
func (a *Agent) navigationLoop(ctx context.Context, events <-chan page.Event, stop func()) {
	defer a.wg.Done()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != page.EventNavigation {
				continue
			}
			a.logger.Info("navigation, rotating capture context",
				logging.String(logging.FieldURL, ev.URL))

			a.mu.Lock()
			old := a.orchestrator
			a.mu.Unlock()
			if old != nil {
				old.Finalize(ctx)
			}
			if err := a.beginCapture(ctx, ev.URL); err != nil {
				a.logger.Error("capture restart failed", logging.Error(err))
			}
		}
	}
}

// syncLoop drives periodic queue delivery.
func (a *Agent) syncLoop(ctx context.Context) {
	defer a.wg.Done()
	interval := time.Duration(a.cfg.Queue.SyncIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.q.Sync(ctx); err != nil && !errors.Is(err, queue.ErrSyncInFlight) {
				a.logger.Warn("periodic sync failed", logging.Error(err))
			}
		}
	}
}

// Stop finalizes the active capture, attempts one last sync bounded by the
// grace timeout, and releases the instance lock.
func (a *Agent) Stop() {
	if !a.running.Load() {
		return
	}

	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.wg.Wait()

	if a.ipcServer != nil {
		a.ipcServer.Close()
		a.ipcServer = nil
	}

	graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	a.mu.Lock()
	o := a.orchestrator
	a.orchestrator = nil
	a.mu.Unlock()
	if o != nil {
		o.Finalize(graceCtx)
	}

	for {
		_, err := a.q.Sync(graceCtx)
		if !errors.Is(err, queue.ErrSyncInFlight) {
			break
		}
		select {
		case <-graceCtx.Done():
			a.logger.Warn("abandoning in-flight sync at shutdown")
		case <-time.After(100 * time.Millisecond):
			continue
		}
		break
	}
	a.q.Close()

	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("failed to release agent lock", logging.Error(err))
	}
	a.running.Store(false)
	a.logger.Info("sift agent stopped")
}

// Close stops the agent and releases held resources.
func (a *Agent) Close() error {
	a.Stop()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
