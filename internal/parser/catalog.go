package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Tile is one product card on a listing page. Empty fields were not found.
type Tile struct {
	Name  string
	Price string
	URL   string
}

var (
	tileSelectors  = []string{"li.product-type-simple", `li[class*="product"]`}
	titleSelectors = []string{"h2.woocommerce-loop-product__title", `h2[class*="title"]`}
	priceSelectors = []string{"span.woocommerce-Price-amount.amount", `span[class*="price"]`}

	paginationContainers = []string{
		"nav.woocommerce-pagination",
		"div.woocommerce-pagination",
		"ul.page-numbers",
		"div.pagination",
		"nav.pagination",
	}

	// NextSelectors are tried in order to find the "next page" control.
	NextSelectors = []string{
		"a.next.page-numbers",
		"a.next",
		`a[aria-label="Next"]`,
		"a.page-numbers.next",
		`a[rel="next"]`,
	}
)

// Tiles returns product cards in document order.
func Tiles(d *Document) []Tile {
	var items *goquery.Selection
	for _, sel := range tileSelectors {
		if items = d.All(sel); items.Length() > 0 {
			break
		}
	}

	var tiles []Tile
	items.Each(func(_ int, item *goquery.Selection) {
		tile := Tile{
			Name:  strippedText(firstWithin(item, titleSelectors)),
			Price: strippedText(firstWithin(item, priceSelectors)),
		}
		if href, ok := item.Find("a[href]").First().Attr("href"); ok {
			tile.URL = d.resolve(href)
		}
		tiles = append(tiles, tile)
	})

	return tiles
}

func firstWithin(s *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return s.FindNodes()
}

// HasPagination reports whether any known pagination container exists.
func HasPagination(d *Document) bool {
	return d.FirstOf(paginationContainers...).Length() > 0
}

// PaginationLinks returns the absolute URLs inside the first pagination
// container that contain any of matchers, de-duplicated in discovery order.
func PaginationLinks(d *Document, matchers ...string) []string {
	container := d.FirstOf(paginationContainers...)
	if container.Length() == 0 {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u := d.resolve(href)
		if u == "" || seen[u] || !matchesAny(u, matchers) {
			return
		}
		seen[u] = true
		links = append(links, u)
	})

	return links
}

// NextControl finds the first enabled "next page" control. It returns the
// selector that matched and the absolute target URL.
func NextControl(d *Document) (selector, href string, ok bool) {
	for _, sel := range NextSelectors {
		control := d.First(sel)
		if control.Length() == 0 || !enabled(control) {
			continue
		}
		target, _ := control.Attr("href")
		target = d.resolve(target)
		if target == "" {
			return "", "", false
		}
		return sel, target, true
	}
	return "", "", false
}

func enabled(s *goquery.Selection) bool {
	if _, disabled := s.Attr("disabled"); disabled {
		return false
	}
	if v, _ := s.Attr("aria-disabled"); strings.EqualFold(v, "true") {
		return false
	}
	class, _ := s.Attr("class")
	return !strings.Contains(strings.ToLower(class), "disabled")
}

func matchesAny(u string, matchers []string) bool {
	for _, m := range matchers {
		if m != "" && strings.Contains(u, m) {
			return true
		}
	}
	return false
}
