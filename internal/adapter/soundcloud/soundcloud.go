// Package soundcloud implements the platform adapter for SoundCloud track
// pages.
package soundcloud

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
const Platform = "soundcloud"

// scriptMarker locates the hydration payload SoundCloud embeds on every
// track page.
const scriptMarker = "__sc_hydration"

// Adapter extracts track metadata from SoundCloud pages. The middle tier
// reads the hydration array's "sound" entry.
type Adapter struct {
	adapter.Base

	mu         sync.Mutex
	contentID  string
	stopBridge func()
}

// New returns an uninitialized SoundCloud adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ID() string { return Platform }

func (a *Adapter) Domains() []string {
	return []string{"soundcloud.com"}
}

func (a *Adapter) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "soundcloud.com" || strings.HasSuffix(host, ".soundcloud.com")
}

func (a *Adapter) Init(ctx context.Context, ic adapter.InitContext) error {
	return a.BindPage(ic)
}

func (a *Adapter) Destroy() {
	a.haltBridge()
	a.Teardown()
}

// ExtractMetadata runs JSON-LD, then the hydration payload, then meta tags.
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
		return nil, fmt.Errorf("soundcloud: load document: %w", err)
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
		meta = a.fromHydration(doc)
	}
	if meta == nil {
		meta, _ = extract.FromMeta(doc)
	}
	if meta == nil {
		return nil, nil
	}

	meta.Platform = Platform
	if meta.ContentType == "" || meta.ContentType == adapter.ContentOther {
		meta.ContentType = adapter.ContentAudio
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

// PlaybackState reports the first audio element's snapshot.
func (a *Adapter) PlaybackState(ctx context.Context) (*page.PlaybackState, error) {
	obs := a.Observer()
	if obs == nil {
		return nil, adapter.ErrNotInitialized
	}
	elems, err := obs.MediaElements(ctx)
	if err != nil {
		return nil, fmt.Errorf("soundcloud: media elements: %w", err)
	}
	for _, el := range elems {
		if el.Kind == page.MediaAudio {
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

// hydrationEntry is one element of the __sc_hydration bootstrap array.
type hydrationEntry struct {
	Hydratable string          `json:"hydratable"`
	Data       json.RawMessage `json:"data"`
}

// sound mirrors the subset of the hydrated track object the adapter
// consumes. Duration is in milliseconds.
type sound struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	DurationMS int64  `json:"duration"`
	ArtworkURL string `json:"artwork_url"`
	Permalink  string `json:"permalink_url"`
	User       struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func (a *Adapter) fromHydration(doc *page.Document) *adapter.Metadata {
	script := doc.ScriptContaining(scriptMarker)
	if script == "" {
		return nil
	}
	raw, err := extract.ScriptObject(script, scriptMarker)
	if err != nil {
		return nil
	}
	var entries []hydrationEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		a.Logger().Debug("hydration decode failed, cascading",
			logging.String(logging.FieldPlatform, Platform),
			logging.Error(err))
		return nil
	}

	for _, entry := range entries {
		if entry.Hydratable != "sound" {
			continue
		}
		var s sound
		if err := json.Unmarshal(entry.Data, &s); err != nil || s.ID == 0 || s.Title == "" {
			continue
		}
		meta := &adapter.Metadata{
			ContentID:    strconv.FormatInt(s.ID, 10),
			Title:        adapter.NormalizeTitle(s.Title),
			CreatorName:  s.User.Username,
			ContentType:  adapter.ContentAudio,
			ThumbnailURL: s.ArtworkURL,
			CanonicalURL: s.Permalink,
			Extra:        map[string]string{"source": "hydration"},
		}
		if s.User.ID != 0 {
			meta.CreatorID = strconv.FormatInt(s.User.ID, 10)
		}
		if s.DurationMS > 0 {
			meta.DurationSeconds = float64(s.DurationMS) / 1000
		}
		if meta.CanonicalURL == "" {
			meta.CanonicalURL = doc.Canonical()
		}
		return meta
	}
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
