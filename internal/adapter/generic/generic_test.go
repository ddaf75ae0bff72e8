package generic_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sift/internal/adapter"
	"sift/internal/adapter/generic"
	"sift/internal/page"
)

func newAdapter(t *testing.T, rawURL, body string) *generic.Adapter {
	t.Helper()
	doc, err := page.ParseDocument(rawURL, strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	a := generic.New()
	ic := adapter.InitContext{Observer: page.NewStaticObserver(doc)}
	if err := a.Init(context.Background(), ic); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(a.Destroy)
	return a
}

func TestCanHandleEverything(t *testing.T) {
	a := generic.New()
	for _, u := range []string{"https://example.com", "https://deep.sub.example.org/x", "not even a url"} {
		if !a.CanHandle(u) {
			t.Fatalf("CanHandle(%q) = false, want true", u)
		}
	}
	if len(a.Domains()) != 0 {
		t.Fatalf("generic adapter should claim no domains, got %v", a.Domains())
	}
}

func TestExtractFromMetaLeavesContentIDEmpty(t *testing.T) {
	body := `<html><head>
<title>Some Blog Post</title>
<meta property="og:type" content="article">
</head><body><article><p>words</p></article></body></html>`
	a := newAdapter(t, "https://blog.example/post/1", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata")
	}
	if meta.ContentID != "" {
		t.Fatalf("expected empty content id, got %q", meta.ContentID)
	}
	if meta.Title != "Some Blog Post" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.ContentType != adapter.ContentArticle {
		t.Fatalf("unexpected content type %q", meta.ContentType)
	}
	if meta.Platform != "generic" {
		t.Fatalf("unexpected platform %q", meta.Platform)
	}
	if meta.CanonicalURL != "https://blog.example/post/1" {
		t.Fatalf("unexpected canonical %q", meta.CanonicalURL)
	}
}

func TestJSONLDContentIDSurvives(t *testing.T) {
	body := `<html><head>
<script type="application/ld+json">{"@type":"Article","headline":"Structured Post","identifier":"post-9"}</script>
<title>ignored</title>
</head><body></body></html>`
	a := newAdapter(t, "https://blog.example/post/9", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil || meta.ContentID != "post-9" || meta.Title != "Structured Post" {
		t.Fatalf("expected json-ld result, got %+v", meta)
	}
}

func TestExtractNothingUsable(t *testing.T) {
	a := newAdapter(t, "https://example.com/empty", `<html><head></head><body></body></html>`)
	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta != nil && meta.Title != "" {
		t.Fatalf("expected no usable metadata, got %+v", meta)
	}
}

func TestVideoHeuristicWins(t *testing.T) {
	body := `<html><head><title>Clip Page</title></head>
<body><video src="clip.mp4"></video><article></article></body></html>`
	a := newAdapter(t, "https://clips.example/1", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil || meta.ContentType != adapter.ContentVideo {
		t.Fatalf("expected video heuristic, got %+v", meta)
	}
}

func TestPlaybackStateFirstElement(t *testing.T) {
	doc, err := page.ParseDocument("https://example.com", strings.NewReader(`<html></html>`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	obs := page.NewStaticObserver(doc)
	obs.SetMedia(&page.MediaElement{Kind: page.MediaVideo, State: page.PlaybackState{Position: 7}})

	a := generic.New()
	if err := a.Init(context.Background(), adapter.InitContext{Observer: obs}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer a.Destroy()

	state, err := a.PlaybackState(context.Background())
	if err != nil {
		t.Fatalf("PlaybackState failed: %v", err)
	}
	if state == nil || state.Position != 7 {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestExtractAfterDestroyDegrades(t *testing.T) {
	a := newAdapter(t, "https://example.com/post", `<html><head><title>Post</title></head></html>`)
	a.Destroy()

	if _, err := a.ExtractMetadata(context.Background()); !errors.Is(err, adapter.ErrDestroyed) {
		t.Fatalf("err = %v, want ErrDestroyed", err)
	}
}
