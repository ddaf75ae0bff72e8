package agent

import (
	"context"
	"errors"
	"os"

	"sift/internal/ipc"
	"sift/internal/queue"
)

// ControlStatus reports the agent and capture context over the socket.
func (a *Agent) ControlStatus(ctx context.Context) ipc.StatusResponse {
	resp := ipc.StatusResponse{
		Running:     a.running.Load(),
		PID:         os.Getpid(),
		QueueLength: a.q.Length(),
		QueueDBPath: a.store.Path(),
		LockPath:    a.lockPath,
	}

	a.mu.Lock()
	o := a.orchestrator
	a.mu.Unlock()
	if o != nil {
		pc := o.Context()
		resp.SessionID = pc.SessionID
		resp.CurrentURL = pc.URL
		resp.Platform = pc.Platform
		resp.ContentID = pc.ContentID
	}
	return resp
}

// ControlSync runs one sync cycle on demand.
func (a *Agent) ControlSync(ctx context.Context) (ipc.SyncResponse, error) {
	res, err := a.q.Sync(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrSyncInFlight) {
			return ipc.SyncResponse{}, errors.New("a sync cycle is already running")
		}
		return ipc.SyncResponse{}, err
	}
	return ipc.SyncResponse{
		Synced:    res.Synced,
		Failed:    res.Failed,
		Remaining: a.q.Length(),
	}, nil
}

// ControlSignals collects identification signals for the current page.
func (a *Agent) ControlSignals(ctx context.Context) (ipc.SignalsResponse, error) {
	a.mu.Lock()
	o := a.orchestrator
	a.mu.Unlock()
	if o == nil {
		return ipc.SignalsResponse{}, errors.New("no active capture context")
	}

	signals := o.CollectSignals(ctx)
	pc := o.Context()
	resp := ipc.SignalsResponse{
		URL:        signals.URL,
		Platform:   pc.Platform,
		ContentID:  pc.ContentID,
		Confidence: signals.Confidence,
		Escalated:  signals.Escalated,
	}
	if signals.Metadata != nil {
		resp.Title = signals.Metadata.Title
	}
	if signals.Engagement != nil {
		resp.EngagementScore = signals.Engagement.Score
		resp.Engaged = signals.Engagement.Engaged
	}
	if signals.Audio != nil {
		resp.AudioHash = signals.Audio.Hash
	}
	if signals.Visual != nil {
		resp.VisualHash = signals.Visual.Hash
	}
	return resp, nil
}

var _ ipc.Controller = (*Agent)(nil)
