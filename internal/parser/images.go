package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	imageExtensions    = []string{"jpg", "jpeg", "png", "gif", "webp", "svg", "bmp"}
	imageIndicators    = []string{"/image/", "/img/", "/photo/", "/picture/", "image=", "img="}
	imagePlaceholders  = []string{"placeholder", "woocommerce-placeholder", "no-image", "default-image", "missing"}
	imageSourceAttrs   = []string{"src", "data-src", "data-lazy-src"}
	galleryImageTarget = "div.woocommerce-product-gallery img"
)

// GalleryImages returns raw image sources from the product gallery in order,
// without duplicates.
func GalleryImages(d *Document) []string {
	var out []string
	seen := make(map[string]bool)

	d.All(galleryImageTarget).Each(func(_ int, img *goquery.Selection) {
		for _, attr := range imageSourceAttrs {
			src, ok := img.Attr(attr)
			if !ok || strings.TrimSpace(src) == "" {
				continue
			}
			src = strings.TrimSpace(src)
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
			return
		}
	})

	return out
}

// FilterImageURLs resolves raw sources against origin, then drops
// placeholders, non-image URLs and duplicates.
func FilterImageURLs(raw []string, origin string) []string {
	var base *url.URL
	if origin != "" {
		if u, err := url.Parse(strings.TrimRight(origin, "/") + "/"); err == nil {
			base = u
		}
	}

	var out []string
	seen := make(map[string]bool)

	for _, src := range raw {
		if src == "" {
			continue
		}

		u := src
		if base != nil && !hasHTTPScheme(u) {
			u = resolveAgainst(base, u)
		}

		if isPlaceholderImage(u) || !ValidImageURL(u) {
			continue
		}

		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	return out
}

// ValidImageURL reports whether u is an http(s) URL that looks like an image.
func ValidImageURL(u string) bool {
	if !hasHTTPScheme(u) {
		return false
	}

	lower := strings.ToLower(u)
	path := lower
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}

	for _, ext := range imageExtensions {
		if strings.Contains(path, "."+ext) {
			return true
		}
	}

	for _, indicator := range imageIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}

	return false
}

func isPlaceholderImage(u string) bool {
	lower := strings.ToLower(u)
	for _, p := range imagePlaceholders {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasHTTPScheme(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
