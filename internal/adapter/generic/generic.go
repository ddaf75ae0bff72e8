// Package generic implements the mandatory fallback adapter. It accepts any
// URL and leans on structured data, meta heuristics, and article extraction
// rather than platform knowledge. An empty content id in its result signals
// the caller that identification must escalate to fingerprinting.
package generic

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-shiori/go-readability"

	"sift/internal/adapter"
	"sift/internal/adapter/extract"
	"sift/internal/logging"
	"sift/internal/page"
)

// Platform is the stable adapter identifier.
const Platform = "generic"

// Adapter handles pages no specific adapter claims.
type Adapter struct {
	adapter.Base

	mu         sync.Mutex
	stopBridge func()
}

// New returns an uninitialized generic adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ID() string { return Platform }

// Domains is empty: the generic adapter is reached through the registry
// fallback, never the domain index.
func (a *Adapter) Domains() []string { return nil }

// CanHandle accepts everything.
func (a *Adapter) CanHandle(string) bool { return true }

func (a *Adapter) Init(ctx context.Context, ic adapter.InitContext) error {
	return a.BindPage(ic)
}

func (a *Adapter) Destroy() {
	a.haltBridge()
	a.Teardown()
}

// ExtractMetadata runs JSON-LD, then meta tags, then readability article
// extraction. The content id is left empty unless structured data supplied
// one; downstream identification treats that as a cue to escalate.
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
		return nil, fmt.Errorf("generic: load document: %w", err)
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
		meta, _ = extract.FromMeta(doc)
	}
	if meta == nil {
		meta = a.fromArticle(doc)
	} else if meta.ContentType == adapter.ContentArticle || meta.ContentType == adapter.ContentOther {
		a.enrichFromArticle(doc, meta)
	}
	if meta == nil {
		return nil, nil
	}

	meta.Platform = Platform
	if meta.CanonicalURL == "" {
		meta.CanonicalURL = doc.URL()
	}
	return meta, nil
}

func (a *Adapter) StartCapture() error {
	if err := a.Base.StartCapture(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopBridge == nil {
		a.stopBridge = adapter.BridgeObserverEvents(&a.Base, Platform, "")
	}
	return nil
}

func (a *Adapter) StopCapture() {
	a.Base.StopCapture()
	a.haltBridge()
}

// PlaybackState reports the first playable element of any kind.
func (a *Adapter) PlaybackState(ctx context.Context) (*page.PlaybackState, error) {
	obs := a.Observer()
	if obs == nil {
		return nil, adapter.ErrNotInitialized
	}
	elems, err := obs.MediaElements(ctx)
	if err != nil {
		return nil, fmt.Errorf("generic: media elements: %w", err)
	}
	if len(elems) == 0 {
		return nil, nil
	}
	state := elems[0].State
	return &state, nil
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

// fromArticle is the last resort for pages without any usable meta tags.
func (a *Adapter) fromArticle(doc *page.Document) *adapter.Metadata {
	article, ok := a.readable(doc)
	if !ok || article.Title == "" {
		return nil
	}
	meta := &adapter.Metadata{
		Title:        adapter.NormalizeTitle(article.Title),
		CreatorName:  article.Byline,
		ContentType:  adapter.ContentArticle,
		ThumbnailURL: article.Image,
		Extra:        map[string]string{"source": "readability"},
	}
	if article.Excerpt != "" {
		meta.Extra["excerpt"] = article.Excerpt
	}
	if article.SiteName != "" {
		meta.Extra["site_name"] = article.SiteName
	}
	return meta
}

// enrichFromArticle fills gaps in meta-derived metadata for article-like
// pages without overriding anything a higher tier already produced.
func (a *Adapter) enrichFromArticle(doc *page.Document, meta *adapter.Metadata) {
	article, ok := a.readable(doc)
	if !ok {
		return
	}
	if meta.CreatorName == "" {
		meta.CreatorName = article.Byline
	}
	if meta.ThumbnailURL == "" {
		meta.ThumbnailURL = article.Image
	}
	if meta.Extra == nil {
		meta.Extra = map[string]string{}
	}
	if article.Excerpt != "" {
		meta.Extra["excerpt"] = article.Excerpt
	}
}

func (a *Adapter) readable(doc *page.Document) (readability.Article, bool) {
	pageURL, err := url.Parse(doc.URL())
	if err != nil {
		pageURL = nil
	}
	article, err := readability.FromReader(bytes.NewReader(doc.Raw()), pageURL)
	if err != nil {
		a.Logger().Debug("article extraction failed",
			logging.String(logging.FieldPlatform, Platform),
			logging.Error(err))
		return readability.Article{}, false
	}
	return article, true
}

var _ adapter.Adapter = (*Adapter)(nil)
