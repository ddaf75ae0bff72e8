package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document wraps a parsed HTML tree with the lookups adapters rely on.
type Document struct {
	url  *url.URL
	root *html.Node
	raw  []byte
}

// ParseDocument parses HTML read from r into a Document anchored at rawURL.
func ParseDocument(rawURL string, r io.Reader) (*Document, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse document url: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{url: parsed, root: root, raw: raw}, nil
}

// FetchDocument retrieves rawURL over HTTP and parses the response body.
func FetchDocument(ctx context.Context, client *http.Client, rawURL string) (*Document, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return ParseDocument(finalURL, io.LimitReader(resp.Body, 8<<20))
}

// URL returns the document's resolved URL.
func (d *Document) URL() string {
	if d == nil || d.url == nil {
		return ""
	}
	return d.url.String()
}

// Host returns the document's hostname.
func (d *Document) Host() string {
	if d == nil || d.url == nil {
		return ""
	}
	return d.url.Hostname()
}

// Raw returns the original HTML bytes.
func (d *Document) Raw() []byte {
	if d == nil {
		return nil
	}
	return d.raw
}

// Root returns the parsed HTML root node.
func (d *Document) Root() *html.Node {
	if d == nil {
		return nil
	}
	return d.root
}

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	node := d.find(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Title
	})
	if node == nil {
		return ""
	}
	return strings.TrimSpace(textContent(node))
}

// Meta returns the content attribute of the first <meta name=...> match.
func (d *Document) Meta(name string) string {
	return d.metaContent("name", name)
}

// MetaProperty returns the content attribute of the first <meta property=...>
// match, which is where Open Graph data lives.
func (d *Document) MetaProperty(property string) string {
	return d.metaContent("property", property)
}

func (d *Document) metaContent(attrKey, attrValue string) string {
	node := d.find(func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
			return false
		}
		return strings.EqualFold(attr(n, attrKey), attrValue)
	})
	if node == nil {
		return ""
	}
	return strings.TrimSpace(attr(node, "content"))
}

// Canonical returns the canonical link when present, the document URL otherwise.
func (d *Document) Canonical() string {
	node := d.find(func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Link {
			return false
		}
		return strings.EqualFold(attr(n, "rel"), "canonical")
	})
	if node != nil {
		if href := strings.TrimSpace(attr(node, "href")); href != "" {
			return d.resolve(href)
		}
	}
	return d.URL()
}

// JSONLD returns the bodies of all <script type="application/ld+json"> blocks
// in document order.
func (d *Document) JSONLD() []string {
	var blocks []string
	d.walk(func(n *html.Node) {
		if n.Type != html.ElementNode || n.DataAtom != atom.Script {
			return
		}
		if !strings.EqualFold(strings.TrimSpace(attr(n, "type")), "application/ld+json") {
			return
		}
		if body := strings.TrimSpace(textContent(n)); body != "" {
			blocks = append(blocks, body)
		}
	})
	return blocks
}

// ScriptContaining returns the body of the first inline script whose text
// contains marker. Platform adapters use this to locate embedded player state.
func (d *Document) ScriptContaining(marker string) string {
	var found string
	d.walk(func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type != html.ElementNode || n.DataAtom != atom.Script {
			return
		}
		body := textContent(n)
		if strings.Contains(body, marker) {
			found = body
		}
	})
	return found
}

// CountElements returns how many elements with the given tag name exist.
func (d *Document) CountElements(tag string) int {
	count := 0
	d.walk(func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
			count++
		}
	})
	return count
}

// HasElement reports whether at least one element with the tag name exists.
func (d *Document) HasElement(tag string) bool {
	return d.CountElements(tag) > 0
}

func (d *Document) resolve(href string) string {
	if d.url == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return d.url.ResolveReference(ref).String()
}

func (d *Document) find(match func(*html.Node) bool) *html.Node {
	if d == nil || d.root == nil {
		return nil
	}
	var found *html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if found != nil {
			return
		}
		if match(n) {
			found = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(d.root)
	return found
}

func (d *Document) walk(visit func(*html.Node)) {
	if d == nil || d.root == nil {
		return
	}
	var recurse func(*html.Node)
	recurse = func(n *html.Node) {
		visit(n)
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			recurse(child)
		}
	}
	recurse(d.root)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var builder strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return builder.String()
}
