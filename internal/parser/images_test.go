package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGalleryImages(t *testing.T) {
	d := mustDocument(t, `<div class="woocommerce-product-gallery">
		<img src="/wp/a.jpg">
		<img data-src="https://shop.by/b.png">
		<img src="" data-lazy-src="/wp/c.webp">
		<img src="/wp/a.jpg">
		<img>
	</div>`)

	assert.Equal(t, []string{"/wp/a.jpg", "https://shop.by/b.png", "/wp/c.webp"}, GalleryImages(d))
}

func TestFilterImageURLs(t *testing.T) {
	raw := []string{
		"/wp/a.jpg",
		"https://shop.by/woocommerce-placeholder.png",
		"https://cdn.shop.by/photo/123",
		"https://shop.by/page.html",
		"data:image/png;base64,xx",
		"https://shop.by/wp/a.jpg",
		"https://shop.by/img.php?image=5",
		"",
	}

	assert.Equal(t, []string{
		"https://shop.by/wp/a.jpg",
		"https://cdn.shop.by/photo/123",
		"https://shop.by/img.php?image=5",
	}, FilterImageURLs(raw, "https://shop.by"))

	assert.Empty(t, FilterImageURLs(nil, "https://shop.by"))
}

func TestValidImageURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://x.by/a.JPG?x=1", true},
		{"http://x.by/uploads/2024/boiler.webp", true},
		{"https://x.by/get?img=7", true},
		{"ftp://x.by/a.jpg", false},
		{"https://x.by/a", false},
		{"/relative/a.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidImageURL(tt.url))
		})
	}
}
