package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sift/internal/adapter"
	"sift/internal/page"
)

// recognizedTypes maps JSON-LD @type values onto content types, in priority
// order: the first matching node in document order wins.
var recognizedTypes = map[string]adapter.ContentType{
	"videoobject":      adapter.ContentVideo,
	"movie":            adapter.ContentVideo,
	"tvepisode":        adapter.ContentVideo,
	"episode":          adapter.ContentVideo,
	"audioobject":      adapter.ContentAudio,
	"musicrecording":   adapter.ContentAudio,
	"podcastepisode":   adapter.ContentAudio,
	"article":          adapter.ContentArticle,
	"newsarticle":      adapter.ContentArticle,
	"blogposting":      adapter.ContentArticle,
	"scholarlyarticle": adapter.ContentArticle,
	"imageobject":      adapter.ContentImage,
	"photograph":       adapter.ContentImage,
}

// FromJSONLD scans the document's JSON-LD blocks for the first node with a
// recognized @type and maps it onto Metadata. Returns (nil, nil) when no
// block yields a usable node.
func FromJSONLD(doc *page.Document) (*adapter.Metadata, error) {
	if doc == nil {
		return nil, nil
	}
	var firstErr error
	for _, block := range doc.JSONLD() {
		node, err := findRecognizedNode(block)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if node == nil {
			continue
		}
		return metadataFromNode(doc, node), nil
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, nil
}

func findRecognizedNode(block string) (map[string]any, error) {
	var decoded any
	if err := json.Unmarshal([]byte(block), &decoded); err != nil {
		return nil, fmt.Errorf("decode json-ld block: %w", err)
	}
	return searchNode(decoded), nil
}

func searchNode(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := nodeType(v); ok {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return searchNode(graph)
		}
	case []any:
		for _, entry := range v {
			if node := searchNode(entry); node != nil {
				return node
			}
		}
	}
	return nil
}

func nodeType(node map[string]any) (adapter.ContentType, bool) {
	raw, ok := node["@type"]
	if !ok {
		return "", false
	}
	for _, typeName := range typeStrings(raw) {
		if ct, known := recognizedTypes[strings.ToLower(typeName)]; known {
			return ct, true
		}
	}
	return "", false
}

func typeStrings(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func metadataFromNode(doc *page.Document, node map[string]any) *adapter.Metadata {
	contentType, _ := nodeType(node)

	meta := &adapter.Metadata{
		ContentType:  contentType,
		Title:        adapter.NormalizeTitle(stringField(node, "name", "headline")),
		ContentID:    stringField(node, "identifier", "@id"),
		ThumbnailURL: imageURL(node),
		CanonicalURL: stringField(node, "url"),
		Extra:        map[string]string{"source": "json-ld"},
	}
	if meta.CanonicalURL == "" {
		meta.CanonicalURL = doc.Canonical()
	}

	if creator := personField(node, "author", "creator", "uploader"); creator != nil {
		meta.CreatorName = creator.name
		meta.CreatorID = creator.id
	}

	if raw := stringField(node, "duration"); raw != "" {
		if seconds, err := ParseISODuration(raw); err == nil {
			meta.DurationSeconds = seconds
		}
	}
	return meta
}

type person struct {
	name string
	id   string
}

func personField(node map[string]any, keys ...string) *person {
	for _, key := range keys {
		raw, ok := node[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if v != "" {
				return &person{name: v}
			}
		case map[string]any:
			p := person{
				name: stringField(v, "name"),
				id:   stringField(v, "@id", "identifier"),
			}
			if p.name != "" || p.id != "" {
				return &p
			}
		case []any:
			for _, entry := range v {
				if m, ok := entry.(map[string]any); ok {
					p := person{
						name: stringField(m, "name"),
						id:   stringField(m, "@id", "identifier"),
					}
					if p.name != "" || p.id != "" {
						return &p
					}
				}
			}
		}
	}
	return nil
}

func imageURL(node map[string]any) string {
	raw, ok := node["thumbnailUrl"]
	if !ok {
		raw, ok = node["image"]
	}
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		return stringField(v, "url", "contentUrl")
	case []any:
		for _, entry := range v {
			switch e := entry.(type) {
			case string:
				if e != "" {
					return e
				}
			case map[string]any:
				if u := stringField(e, "url", "contentUrl"); u != "" {
					return u
				}
			}
		}
	}
	return ""
}

func stringField(node map[string]any, keys ...string) string {
	for _, key := range keys {
		if raw, ok := node[key]; ok {
			if s, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

// ParseISODuration converts an ISO 8601 duration (PT1H2M3S) into seconds.
func ParseISODuration(value string) (float64, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if !strings.HasPrefix(value, "P") {
		return 0, fmt.Errorf("duration %q missing P prefix", value)
	}
	rest := value[1:]

	var total float64
	inTime := false
	number := strings.Builder{}
	for _, r := range rest {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9' || r == '.':
			number.WriteRune(r)
		default:
			if number.Len() == 0 {
				return 0, fmt.Errorf("duration %q has dangling unit %q", value, string(r))
			}
			amount, err := strconv.ParseFloat(number.String(), 64)
			if err != nil {
				return 0, fmt.Errorf("duration %q: %w", value, err)
			}
			number.Reset()
			switch {
			case r == 'D':
				total += amount * 86400
			case r == 'H' && inTime:
				total += amount * 3600
			case r == 'M' && inTime:
				total += amount * 60
			case r == 'M':
				// Months are not meaningful for playback durations.
				return 0, fmt.Errorf("duration %q uses month units", value)
			case r == 'S':
				total += amount
			default:
				return 0, fmt.Errorf("duration %q has unsupported unit %q", value, string(r))
			}
		}
	}
	if number.Len() > 0 {
		return 0, fmt.Errorf("duration %q has trailing digits", value)
	}
	return total, nil
}
