package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiles(t *testing.T) {
	d := mustDocument(t, `<ul class="products">
		<li class="product product-type-simple">
			<a href="/product/vaillant-eloblock-6/"><h2 class="woocommerce-loop-product__title">Vaillant eloBLOCK VE 6</h2></a>
			<span class="price"><span class="woocommerce-Price-amount amount">1 200,00 р.</span></span>
		</li>
		<li class="product product-type-simple">
			<a href="https://shop.by/product/2/"><h2 class="woocommerce-loop-product__title">Protherm Скат 9</h2></a>
		</li>
	</ul>`)

	tiles := Tiles(d)
	require.Len(t, tiles, 2)
	assert.Equal(t, Tile{
		Name:  "Vaillant eloBLOCK VE 6",
		Price: "1 200,00 р.",
		URL:   "https://shop.by/product/vaillant-eloblock-6/",
	}, tiles[0])
	assert.Equal(t, Tile{Name: "Protherm Скат 9", URL: "https://shop.by/product/2/"}, tiles[1])
}

func TestTilesFallbackSelectors(t *testing.T) {
	d := mustDocument(t, `<ul>
		<li class="type-product"><h2 class="entry-title">Kospel EKCO</h2><span class="price-new">5</span><a href="/p/x">go</a></li>
	</ul>`)

	tiles := Tiles(d)
	require.Len(t, tiles, 1)
	assert.Equal(t, Tile{Name: "Kospel EKCO", Price: "5", URL: "https://shop.by/p/x"}, tiles[0])
}

func TestTilesEmptyPage(t *testing.T) {
	assert.Empty(t, Tiles(mustDocument(t, `<div>nothing</div>`)))
}

const paginationHTML = `<nav class="woocommerce-pagination"><ul class="page-numbers">
	<li><span class="page-numbers current">1</span></li>
	<li><a class="page-numbers" href="/catalog/electric/page/2/?filter=1">2</a></li>
	<li><a class="page-numbers" href="/catalog/electric/page/3/?filter=1">3</a></li>
	<li><a class="page-numbers" href="/catalog/electric/page/2/?filter=1">dup</a></li>
	<li><a href="/other/">x</a></li>
	<li><a class="next page-numbers" href="/catalog/electric/page/2/?filter=1">&rarr;</a></li>
</ul></nav>`

func TestPaginationLinks(t *testing.T) {
	d := mustDocument(t, paginationHTML)

	assert.True(t, HasPagination(d))
	assert.Equal(t, []string{
		"https://shop.by/catalog/electric/page/2/?filter=1",
		"https://shop.by/catalog/electric/page/3/?filter=1",
	}, PaginationLinks(d, "/catalog/electric/", "filter=1"))

	empty := mustDocument(t, `<div>no pages</div>`)
	assert.False(t, HasPagination(empty))
	assert.Nil(t, PaginationLinks(empty, "/catalog/electric/"))
}

func TestNextControl(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		href     string
		ok       bool
	}{
		{
			name:     "woocommerce next",
			html:     paginationHTML,
			selector: "a.next.page-numbers",
			href:     "https://shop.by/catalog/electric/page/2/?filter=1",
			ok:       true,
		},
		{
			name: "disabled by class",
			html: `<a class="next disabled" href="/p2">next</a>`,
		},
		{
			name: "disabled by aria",
			html: `<a rel="next" aria-disabled="true" href="/p2">next</a>`,
		},
		{
			name:     "skips disabled and takes rel next",
			html:     `<a class="next disabled" href="/p2">next</a><a rel="next" href="/p/3">more</a>`,
			selector: `a[rel="next"]`,
			href:     "https://shop.by/p/3",
			ok:       true,
		},
		{
			name: "no control",
			html: `<div></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector, href, ok := NextControl(mustDocument(t, tt.html))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.selector, selector)
			assert.Equal(t, tt.href, href)
		})
	}
}
