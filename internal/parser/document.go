package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type queryKind uint8

const (
	queryFirst queryKind = iota
	queryAll
)

// queryKey identifies one document-level lookup.
type queryKey struct {
	kind     queryKind
	selector string
}

// Document is a parsed page plus a lookup cache that lives exactly as long
// as the parse. Identical lookups made by different extractors hit the tree
// once.
type Document struct {
	doc     *goquery.Document
	pageURL *url.URL
	cache   map[queryKey]*goquery.Selection
	lookups int
	misses  int
}

func NewDocument(rawHTML, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	return &Document{
		doc:     doc,
		pageURL: u,
		cache:   make(map[queryKey]*goquery.Selection),
	}, nil
}

// First returns the first element matching selector, possibly empty.
func (d *Document) First(selector string) *goquery.Selection {
	return d.lookup(queryKey{kind: queryFirst, selector: selector})
}

// All returns every element matching selector in document order.
func (d *Document) All(selector string) *goquery.Selection {
	return d.lookup(queryKey{kind: queryAll, selector: selector})
}

// FirstOf returns the first non-empty match among selectors.
func (d *Document) FirstOf(selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if s := d.First(sel); s.Length() > 0 {
			return s
		}
	}
	return d.doc.FindNodes()
}

func (d *Document) lookup(key queryKey) *goquery.Selection {
	d.lookups++
	if sel, ok := d.cache[key]; ok {
		return sel
	}
	d.misses++

	var sel *goquery.Selection
	matcher, err := cascadia.Compile(key.selector)
	if err != nil {
		sel = d.doc.FindNodes()
	} else {
		sel = d.doc.FindMatcher(matcher)
		if key.kind == queryFirst {
			sel = sel.First()
		}
	}

	d.cache[key] = sel
	return sel
}

// CacheStats reports total lookups and how many of them reached the tree.
func (d *Document) CacheStats() (lookups, misses int) {
	return d.lookups, d.misses
}

// Origin is scheme://host of the page.
func (d *Document) Origin() string {
	if d.pageURL.Scheme == "" || d.pageURL.Host == "" {
		return ""
	}
	return d.pageURL.Scheme + "://" + d.pageURL.Host
}

// resolve makes href absolute against the page URL.
func (d *Document) resolve(href string) string {
	return resolveAgainst(d.pageURL, href)
}

// resolveOrigin makes href absolute against the page origin.
func (d *Document) resolveOrigin(href string) string {
	base := &url.URL{Scheme: d.pageURL.Scheme, Host: d.pageURL.Host, Path: "/"}
	return resolveAgainst(base, href)
}

func resolveAgainst(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// strippedText concatenates every trimmed text node under s.
func strippedText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		walkText(n, func(text string) {
			b.WriteString(strings.TrimSpace(text))
		})
	}
	return b.String()
}

// textLines returns the non-empty trimmed lines of the text under s, one
// text node per line at least.
func textLines(s *goquery.Selection) []string {
	var lines []string
	for _, n := range s.Nodes {
		walkText(n, func(text string) {
			for _, line := range strings.Split(text, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		})
	}
	return lines
}

// textBefore collects trimmed text nodes under root that precede stop in
// document order.
func textBefore(root, stop *html.Node) string {
	var parts []string
	done := false

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if done {
			return
		}
		if n == stop {
			done = true
			return
		}
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.Join(parts, " ")
}

func walkText(n *html.Node, fn func(string)) {
	switch n.Type {
	case html.TextNode:
		fn(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, fn)
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAnyFold(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
