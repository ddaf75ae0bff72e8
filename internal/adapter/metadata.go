package adapter

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle canonicalizes extracted titles: NFC-normalized unicode,
// collapsed whitespace, and stripped control characters. Platforms decorate
// titles inconsistently (non-breaking spaces, combining marks), so every
// adapter funnels titles through here before building Metadata.
func NormalizeTitle(title string) string {
	title = norm.NFC.String(title)

	var builder strings.Builder
	builder.Grow(len(title))
	lastSpace := true
	for _, r := range title {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				builder.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		builder.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(builder.String(), " ")
}

// ParseContentType maps loose type strings (Open Graph values, JSON-LD types)
// onto the ContentType enum.
func ParseContentType(value string) ContentType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "video", "video.movie", "video.episode", "video.tv_show", "video.other", "videoobject", "movie", "episode", "tvepisode":
		return ContentVideo
	case "audio", "music", "music.song", "music.album", "music.radio_station", "audioobject", "musicrecording", "podcastepisode":
		return ContentAudio
	case "article", "newsarticle", "blogposting", "report", "scholarlyarticle":
		return ContentArticle
	case "image", "imageobject", "photograph":
		return ContentImage
	default:
		return ContentOther
	}
}
