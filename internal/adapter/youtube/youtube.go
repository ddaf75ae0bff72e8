// Package youtube implements the platform adapter for YouTube watch pages.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"sift/internal/adapter"
	"sift/internal/adapter/extract"
	"sift/internal/logging"
	"sift/internal/page"
)

// Platform is the stable adapter identifier.
const Platform = "youtube"

// scriptMarker locates the player bootstrap object inside inline scripts.
const scriptMarker = "ytInitialPlayerResponse"

// Adapter extracts video metadata from YouTube pages via the standard
// cascade. The middle tier reads the embedded player response, which is
// present on watch pages even when JSON-LD is not.
type Adapter struct {
	adapter.Base

	mu         sync.Mutex
	contentID  string
	stopBridge func()
}

// New returns an uninitialized YouTube adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ID() string { return Platform }

func (a *Adapter) Domains() []string {
	return []string{"youtube.com", "youtu.be"}
}

// CanHandle accepts any youtube.com subdomain and youtu.be short links.
func (a *Adapter) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtube.com" || host == "youtu.be" ||
		strings.HasSuffix(host, ".youtube.com")
}

func (a *Adapter) Init(ctx context.Context, ic adapter.InitContext) error {
	return a.BindPage(ic)
}

func (a *Adapter) Destroy() {
	a.haltBridge()
	a.Teardown()
}

// ExtractMetadata runs JSON-LD, then the embedded player response, then meta
// tags. A page without any of the three is an expected miss.
func (a *Adapter) ExtractMetadata(ctx context.Context) (*adapter.Metadata, error) {
	switch a.State() {
	case adapter.StateUninitialized:
		return nil, adapter.ErrNotInitialized
	case adapter.StateDestroyed:
		return nil, adapter.ErrDestroyed
	}
	obs := a.Observer()
	if obs == nil {
		return nil, adapter.ErrDestroyed
	}
	doc, err := obs.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube: load document: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	meta, err := extract.FromJSONLD(doc)
	if err != nil {
		a.Logger().Debug("json-ld tier failed, cascading",
			logging.String(logging.FieldPlatform, Platform),
			logging.Error(err))
		meta = nil
	}
	if meta == nil {
		meta = a.fromPlayerResponse(doc)
	}
	if meta == nil {
		meta, _ = extract.FromMeta(doc)
	}
	if meta == nil {
		return nil, nil
	}

	meta.Platform = Platform
	if meta.ContentID == "" {
		meta.ContentID = VideoID(doc.URL())
	}
	if meta.ContentType == "" || meta.ContentType == adapter.ContentOther {
		meta.ContentType = adapter.ContentVideo
	}
	a.setContentID(meta.ContentID)
	return meta, nil
}

func (a *Adapter) StartCapture() error {
	if err := a.Base.StartCapture(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopBridge == nil {
		a.stopBridge = adapter.BridgeObserverEvents(&a.Base, Platform, a.contentID)
	}
	return nil
}

func (a *Adapter) StopCapture() {
	a.Base.StopCapture()
	a.haltBridge()
}

// PlaybackState reports the first video element's snapshot.
func (a *Adapter) PlaybackState(ctx context.Context) (*page.PlaybackState, error) {
	obs := a.Observer()
	if obs == nil {
		return nil, adapter.ErrNotInitialized
	}
	elems, err := obs.MediaElements(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube: media elements: %w", err)
	}
	for _, el := range elems {
		if el.Kind == page.MediaVideo {
			state := el.State
			return &state, nil
		}
	}
	return nil, nil
}

func (a *Adapter) haltBridge() {
	a.mu.Lock()
	stop := a.stopBridge
	a.stopBridge = nil
	a.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (a *Adapter) setContentID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contentID = id
}

// playerResponse mirrors the subset of the bootstrap object the adapter
// consumes.
type playerResponse struct {
	VideoDetails struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		Author        string `json:"author"`
		ChannelID     string `json:"channelId"`
		LengthSeconds string `json:"lengthSeconds"`
		Thumbnail     struct {
			Thumbnails []struct {
				URL   string `json:"url"`
				Width int    `json:"width"`
			} `json:"thumbnails"`
		} `json:"thumbnail"`
	} `json:"videoDetails"`
}

func (a *Adapter) fromPlayerResponse(doc *page.Document) *adapter.Metadata {
	script := doc.ScriptContaining(scriptMarker)
	if script == "" {
		return nil
	}
	raw, err := extract.ScriptObject(script, scriptMarker)
	if err != nil {
		return nil
	}
	var pr playerResponse
	if err := json.Unmarshal([]byte(raw), &pr); err != nil {
		a.Logger().Debug("player response decode failed, cascading",
			logging.String(logging.FieldPlatform, Platform),
			logging.Error(err))
		return nil
	}
	details := pr.VideoDetails
	if details.VideoID == "" || details.Title == "" {
		return nil
	}

	meta := &adapter.Metadata{
		ContentID:   details.VideoID,
		Title:       adapter.NormalizeTitle(details.Title),
		CreatorName: details.Author,
		CreatorID:   details.ChannelID,
		ContentType: adapter.ContentVideo,
		Extra:       map[string]string{"source": "player-response"},
	}
	if seconds, err := strconv.ParseFloat(details.LengthSeconds, 64); err == nil && seconds > 0 {
		meta.DurationSeconds = seconds
	}

	best := ""
	bestWidth := -1
	for _, t := range details.Thumbnail.Thumbnails {
		if t.URL != "" && t.Width > bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	meta.ThumbnailURL = best

	if canonical := doc.Canonical(); canonical != "" {
		meta.CanonicalURL = canonical
	} else {
		meta.CanonicalURL = "https://www.youtube.com/watch?v=" + details.VideoID
	}
	return meta
}

// VideoID pulls the video identifier out of watch, short-link, shorts, and
// embed URL shapes. Returns "" when the URL carries none.
func VideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	if host == "youtu.be" {
		if len(segments) > 0 && segments[0] != "" {
			return segments[0]
		}
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live") {
		return segments[1]
	}
	return ""
}

var _ adapter.Adapter = (*Adapter)(nil)
