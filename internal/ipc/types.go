package ipc

// StatusRequest fetches agent status.
type StatusRequest struct{}

// StatusResponse describes the running agent and its capture context.
type StatusResponse struct {
	Running     bool   `json:"running"`
	PID         int    `json:"pid"`
	QueueLength int    `json:"queue_length"`
	QueueDBPath string `json:"queue_db_path"`
	LockPath    string `json:"lock_path"`
	SessionID   string `json:"session_id"`
	CurrentURL  string `json:"current_url"`
	Platform    string `json:"platform"`
	ContentID   string `json:"content_id"`
}

// SyncRequest triggers an immediate queue sync cycle.
type SyncRequest struct{}

// SyncResponse reports the outcome of one sync cycle.
type SyncResponse struct {
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// SignalsRequest collects identification signals for the current page.
type SignalsRequest struct{}

// SignalsResponse summarizes the signals collected so far.
type SignalsResponse struct {
	URL             string  `json:"url"`
	Platform        string  `json:"platform"`
	ContentID       string  `json:"content_id"`
	Title           string  `json:"title"`
	Confidence      float64 `json:"confidence"`
	Escalated       bool    `json:"escalated"`
	EngagementScore float64 `json:"engagement_score"`
	Engaged         bool    `json:"engaged"`
	AudioHash       string  `json:"audio_hash"`
	VisualHash      string  `json:"visual_hash"`
}
