package soundcloud_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sift/internal/adapter"
	"sift/internal/adapter/soundcloud"
	"sift/internal/page"
)

func newAdapter(t *testing.T, rawURL, body string) *soundcloud.Adapter {
	t.Helper()
	doc, err := page.ParseDocument(rawURL, strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	a := soundcloud.New()
	ic := adapter.InitContext{Observer: page.NewStaticObserver(doc)}
	if err := a.Init(context.Background(), ic); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(a.Destroy)
	return a
}

func TestExtractFromHydration(t *testing.T) {
	body := `<html><head><title>track page</title>
<script>window.__sc_hydration = [{"hydratable":"meUser","data":{}},{"hydratable":"sound","data":{"id":128955,"title":"Midnight Loop","duration":187000,"artwork_url":"https://i1.sndcdn.com/art.jpg","permalink_url":"https://soundcloud.com/luna/midnight-loop","user":{"id":99,"username":"Luna"}}}];</script>
</head><body></body></html>`
	a := newAdapter(t, "https://soundcloud.com/luna/midnight-loop", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata")
	}
	if meta.ContentID != "128955" {
		t.Fatalf("unexpected content id %q", meta.ContentID)
	}
	if meta.Title != "Midnight Loop" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.CreatorName != "Luna" || meta.CreatorID != "99" {
		t.Fatalf("unexpected creator %q/%q", meta.CreatorName, meta.CreatorID)
	}
	if meta.DurationSeconds != 187 {
		t.Fatalf("unexpected duration %v", meta.DurationSeconds)
	}
	if meta.ContentType != adapter.ContentAudio {
		t.Fatalf("unexpected content type %q", meta.ContentType)
	}
	if meta.CanonicalURL != "https://soundcloud.com/luna/midnight-loop" {
		t.Fatalf("unexpected canonical %q", meta.CanonicalURL)
	}
	if meta.Platform != "soundcloud" {
		t.Fatalf("unexpected platform %q", meta.Platform)
	}
}

func TestHydrationSkipsNonSoundEntries(t *testing.T) {
	body := `<html><head>
<script>window.__sc_hydration = [{"hydratable":"playlist","data":{"id":1,"title":"Mix"}}];</script>
<meta property="og:title" content="Fallback Track">
</head><body></body></html>`
	a := newAdapter(t, "https://soundcloud.com/luna/sets/mix", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil || meta.Title != "Fallback Track" {
		t.Fatalf("expected meta tier fallback, got %+v", meta)
	}
	if meta.ContentType != adapter.ContentAudio {
		t.Fatalf("unexpected content type %q", meta.ContentType)
	}
}

func TestExtractExpectedMiss(t *testing.T) {
	a := newAdapter(t, "https://soundcloud.com/", `<html><head></head><body></body></html>`)
	meta, err := a.ExtractMetadata(context.Background())
	if err != nil || meta != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", meta, err)
	}
}

func TestCanHandle(t *testing.T) {
	a := soundcloud.New()
	cases := []struct {
		url  string
		want bool
	}{
		{"https://soundcloud.com/luna/track", true},
		{"https://www.soundcloud.com/luna/track", true},
		{"https://on.soundcloud.com/abc", true},
		{"https://example.com/luna", false},
	}
	for _, tc := range cases {
		if got := a.CanHandle(tc.url); got != tc.want {
			t.Fatalf("CanHandle(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestPlaybackStatePicksAudioElement(t *testing.T) {
	doc, err := page.ParseDocument("https://soundcloud.com/luna/track", strings.NewReader(`<html></html>`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	obs := page.NewStaticObserver(doc)
	obs.SetMedia(&page.MediaElement{Kind: page.MediaAudio, State: page.PlaybackState{Position: 12, Paused: true}})

	a := soundcloud.New()
	if err := a.Init(context.Background(), adapter.InitContext{Observer: obs}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer a.Destroy()

	state, err := a.PlaybackState(context.Background())
	if err != nil {
		t.Fatalf("PlaybackState failed: %v", err)
	}
	if state == nil || state.Position != 12 || !state.Paused {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestExtractAfterDestroyDegrades(t *testing.T) {
	a := newAdapter(t, "https://soundcloud.com/luna/track", `<html><head><title>t</title></head></html>`)
	a.Destroy()

	if _, err := a.ExtractMetadata(context.Background()); !errors.Is(err, adapter.ErrDestroyed) {
		t.Fatalf("err = %v, want ErrDestroyed", err)
	}
}
