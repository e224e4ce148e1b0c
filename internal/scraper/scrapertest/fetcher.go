// Package scrapertest provides an in-memory page fetcher and catalog page
// builders for tests.
package scrapertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var ErrNavigation = errors.New("navigation failed")

// Fetcher serves canned pages. Clicking moves from the current URL to the one
// registered in Clicks.
type Fetcher struct {
	Pages      map[string]string
	Clicks     map[string]string
	Failing    map[string]bool
	NoMarker   map[string]bool
	Current    string
	Fetched    []string
	ClickCalls int
	Closed     bool

	mu sync.Mutex
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Pages:    make(map[string]string),
		Clicks:   make(map[string]string),
		Failing:  make(map[string]bool),
		NoMarker: make(map[string]bool),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Fetched = append(f.Fetched, url)
	if f.Failing[url] {
		return "", fmt.Errorf("%w: %s", ErrNavigation, url)
	}
	html, ok := f.Pages[url]
	if !ok {
		return "", fmt.Errorf("%w: unknown page %s", ErrNavigation, url)
	}
	f.Current = url
	return html, nil
}

func (f *Fetcher) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Current != "" && !f.NoMarker[f.Current]
}

func (f *Fetcher) ClickNext(ctx context.Context, selector string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ClickCalls++
	next, ok := f.Clicks[f.Current]
	if !ok {
		return false
	}
	f.Current = next
	return true
}

func (f *Fetcher) Content(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	html, ok := f.Pages[f.Current]
	if !ok {
		return "", ErrNavigation
	}
	return html, nil
}

func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsClosed reads Closed under the lock.
func (f *Fetcher) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closed
}

// ListingPage renders a catalog page with tiles and an optional pagination
// block. links are hrefs inside the container; next is the next control href.
func ListingPage(tiles string, links []string, next string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="products">`)
	b.WriteString(tiles)
	b.WriteString(`</ul>`)
	if len(links) > 0 || next != "" {
		b.WriteString(`<nav class="woocommerce-pagination"><ul class="page-numbers">`)
		for i, l := range links {
			fmt.Fprintf(&b, `<li><a class="page-numbers" href="%s">%d</a></li>`, l, i+2)
		}
		if next != "" {
			fmt.Fprintf(&b, `<li><a class="next page-numbers" href="%s">&rarr;</a></li>`, next)
		}
		b.WriteString(`</ul></nav>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// Tile renders one product tile of a listing page.
func Tile(name, price, href string) string {
	var b strings.Builder
	b.WriteString(`<li class="product product-type-simple">`)
	fmt.Fprintf(&b, `<a href="%s">`, href)
	if name != "" {
		fmt.Fprintf(&b, `<h2 class="woocommerce-loop-product__title">%s</h2>`, name)
	}
	b.WriteString(`</a>`)
	if price != "" {
		fmt.Fprintf(&b, `<span class="price"><span class="woocommerce-Price-amount amount">%s</span></span>`, price)
	}
	b.WriteString(`</li>`)
	return b.String()
}

// DetailPage renders a product page with a gallery, a description panel and
// a spec_sheet table built from label/unit/value triples.
func DetailPage(images []string, description string, specs [][3]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="product">`)
	b.WriteString(`<div class="woocommerce-product-gallery">`)
	for _, img := range images {
		fmt.Fprintf(&b, `<img src="%s">`, img)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="woocommerce-Tabs-panel--description" itemprop="description"><p>%s</p></div>`, description)
	b.WriteString(`<table class="spec_sheet">`)
	for _, row := range specs {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td></tr>`, row[0], row[1], row[2])
	}
	b.WriteString(`</table></div></body></html>`)
	return b.String()
}
