package extract

import (
	"strconv"
	"strings"

	"sift/internal/adapter"
	"sift/internal/page"
)

// FromMeta scrapes rendered meta tags (Open Graph, twitter cards, plain HTML)
// into Metadata. This is the lowest-trust tier: it always produces something
// for a page with a title, so callers run it last.
func FromMeta(doc *page.Document) (*adapter.Metadata, error) {
	if doc == nil {
		return nil, nil
	}

	title := doc.MetaProperty("og:title")
	if title == "" {
		title = doc.Meta("twitter:title")
	}
	if title == "" {
		title = doc.Title()
	}
	if title == "" {
		return nil, nil
	}

	meta := &adapter.Metadata{
		Title:        adapter.NormalizeTitle(title),
		ContentType:  InferContentType(doc),
		CanonicalURL: canonicalURL(doc),
		ThumbnailURL: thumbnail(doc),
		CreatorName:  creatorName(doc),
		Extra:        map[string]string{"source": "meta"},
	}

	if site := doc.MetaProperty("og:site_name"); site != "" {
		meta.Extra["site_name"] = site
	}
	if raw := firstNonEmpty(
		doc.MetaProperty("video:duration"),
		doc.MetaProperty("music:duration"),
		doc.MetaProperty("og:video:duration"),
	); raw != "" {
		if seconds, err := strconv.ParseFloat(raw, 64); err == nil && seconds > 0 {
			meta.DurationSeconds = seconds
		}
	}
	return meta, nil
}

// InferContentType guesses the dominant content of a page from media element
// counts, article markup, and the Open Graph type, in that order of evidence.
func InferContentType(doc *page.Document) adapter.ContentType {
	if doc == nil {
		return adapter.ContentOther
	}
	if doc.CountElements("video") > 0 {
		return adapter.ContentVideo
	}
	if doc.CountElements("audio") > 0 {
		return adapter.ContentAudio
	}
	if ogType := doc.MetaProperty("og:type"); ogType != "" {
		if ct := adapter.ParseContentType(ogType); ct != adapter.ContentOther {
			return ct
		}
	}
	if doc.HasElement("article") {
		return adapter.ContentArticle
	}
	return adapter.ContentOther
}

func canonicalURL(doc *page.Document) string {
	if og := doc.MetaProperty("og:url"); og != "" {
		return og
	}
	return doc.Canonical()
}

func thumbnail(doc *page.Document) string {
	return firstNonEmpty(
		doc.MetaProperty("og:image"),
		doc.Meta("twitter:image"),
	)
}

func creatorName(doc *page.Document) string {
	return firstNonEmpty(
		doc.Meta("author"),
		doc.MetaProperty("article:author"),
		doc.MetaProperty("og:video:director"),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
