package youtube_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sift/internal/adapter"
	"sift/internal/adapter/youtube"
	"sift/internal/page"
)

func newAdapter(t *testing.T, rawURL, body string) *youtube.Adapter {
	t.Helper()
	doc, err := page.ParseDocument(rawURL, strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	a := youtube.New()
	ic := adapter.InitContext{Observer: page.NewStaticObserver(doc)}
	if err := a.Init(context.Background(), ic); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(a.Destroy)
	return a
}

func TestExtractFromPlayerResponse(t *testing.T) {
	body := `<html><head><title>watch page</title>
<script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"dQw4w9WgXcQ","title":"Never Gonna Stop","author":"RickChannel","channelId":"UC123","lengthSeconds":"212","thumbnail":{"thumbnails":[{"url":"https://i.ytimg.com/small.jpg","width":120},{"url":"https://i.ytimg.com/big.jpg","width":480}]}}};</script>
</head><body></body></html>`
	a := newAdapter(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata")
	}
	if meta.ContentID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected content id %q", meta.ContentID)
	}
	if meta.Title != "Never Gonna Stop" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.CreatorName != "RickChannel" || meta.CreatorID != "UC123" {
		t.Fatalf("unexpected creator %q/%q", meta.CreatorName, meta.CreatorID)
	}
	if meta.DurationSeconds != 212 {
		t.Fatalf("unexpected duration %v", meta.DurationSeconds)
	}
	if meta.ThumbnailURL != "https://i.ytimg.com/big.jpg" {
		t.Fatalf("expected widest thumbnail, got %q", meta.ThumbnailURL)
	}
	if meta.Platform != "youtube" {
		t.Fatalf("unexpected platform %q", meta.Platform)
	}
	if meta.ContentType != adapter.ContentVideo {
		t.Fatalf("unexpected content type %q", meta.ContentType)
	}
	if meta.CanonicalURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("unexpected canonical %q", meta.CanonicalURL)
	}
}

func TestJSONLDWinsOverPlayerResponse(t *testing.T) {
	body := `<html><head>
<script type="application/ld+json">{"@type":"VideoObject","name":"Structured Title","identifier":"ld-1"}</script>
<script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"script-1","title":"Script Title"}};</script>
</head><body></body></html>`
	a := newAdapter(t, "https://www.youtube.com/watch?v=script-1", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil || meta.Title != "Structured Title" || meta.ContentID != "ld-1" {
		t.Fatalf("expected json-ld tier to win, got %+v", meta)
	}
}

func TestMetaTierFallbackAndURLContentID(t *testing.T) {
	body := `<html><head>
<meta property="og:title" content="Meta Only Video">
<meta property="og:type" content="video.other">
</head><body></body></html>`
	a := newAdapter(t, "https://www.youtube.com/watch?v=abc123xyz", body)

	meta, err := a.ExtractMetadata(context.Background())
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata from meta tier")
	}
	if meta.Title != "Meta Only Video" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.ContentID != "abc123xyz" {
		t.Fatalf("expected content id from URL, got %q", meta.ContentID)
	}
}

func TestExtractExpectedMiss(t *testing.T) {
	a := newAdapter(t, "https://www.youtube.com/", `<html><head></head><body></body></html>`)
	meta, err := a.ExtractMetadata(context.Background())
	if err != nil || meta != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", meta, err)
	}
}

func TestCanHandle(t *testing.T) {
	a := youtube.New()
	cases := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=x", true},
		{"https://m.youtube.com/watch?v=x", true},
		{"https://youtu.be/x", true},
		{"https://example.com/watch", false},
		{"://bad", false},
	}
	for _, tc := range cases {
		if got := a.CanHandle(tc.url); got != tc.want {
			t.Fatalf("CanHandle(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abc", "abc"},
		{"https://www.youtube.com/embed/def", "def"},
		{"https://www.youtube.com/", ""},
		{"https://www.youtube.com/feed/subscriptions", ""},
	}
	for _, tc := range cases {
		if got := youtube.VideoID(tc.url); got != tc.want {
			t.Fatalf("VideoID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestPlaybackStatePicksVideoElement(t *testing.T) {
	doc, err := page.ParseDocument("https://www.youtube.com/watch?v=x", strings.NewReader(`<html></html>`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	obs := page.NewStaticObserver(doc)
	obs.SetMedia(
		&page.MediaElement{Kind: page.MediaAudio, State: page.PlaybackState{Position: 1}},
		&page.MediaElement{Kind: page.MediaVideo, State: page.PlaybackState{Position: 42, Duration: 212}},
	)

	a := youtube.New()
	if err := a.Init(context.Background(), adapter.InitContext{Observer: obs}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer a.Destroy()

	state, err := a.PlaybackState(context.Background())
	if err != nil {
		t.Fatalf("PlaybackState failed: %v", err)
	}
	if state == nil || state.Position != 42 || state.Duration != 212 {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestCaptureBridgesObserverEvents(t *testing.T) {
	doc, err := page.ParseDocument("https://www.youtube.com/watch?v=x", strings.NewReader(`<html></html>`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	obs := page.NewStaticObserver(doc)

	a := youtube.New()
	if err := a.Init(context.Background(), adapter.InitContext{Observer: obs}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer a.Destroy()

	received := make(chan adapter.Event, 8)
	unsub := a.Subscribe(func(ev adapter.Event) { received <- ev })
	defer unsub()

	if err := a.StartCapture(); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	obs.Emit(page.Event{Kind: page.EventPlayback, Action: page.PlaybackPlay, Position: 3})

	var ev adapter.Event
	select {
	case ev = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridged event")
	}
	if ev.Type != "playback_play" {
		t.Fatalf("unexpected event type %q", ev.Type)
	}
	if ev.Platform != "youtube" {
		t.Fatalf("unexpected platform %q", ev.Platform)
	}
	if ev.Payload["position"] != 3.0 {
		t.Fatalf("unexpected payload %v", ev.Payload)
	}
}

func TestExtractAfterDestroyDegrades(t *testing.T) {
	a := newAdapter(t, "https://www.youtube.com/watch?v=x", `<html><head><title>x</title></head></html>`)
	a.Destroy()

	if _, err := a.ExtractMetadata(context.Background()); !errors.Is(err, adapter.ErrDestroyed) {
		t.Fatalf("err = %v, want ErrDestroyed", err)
	}
}
