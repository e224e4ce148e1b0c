package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/boiler-scraper/internal/brands"
	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/parser"
	"github.com/maltedev/boiler-scraper/internal/ratelimit"
	"github.com/maltedev/boiler-scraper/internal/reconcile"
	"github.com/maltedev/boiler-scraper/internal/specs"
)

type CollectorOptions struct {
	ListingMarker   string
	ProductMarker   string
	ElementTimeout  time.Duration
	MaxImages       int
	ValidateImages  bool
	RefreshExisting bool
	PriceFallback   string
}

// PageResult is what one catalog page yielded.
type PageResult struct {
	Products         []*models.RawProduct
	Tiles            int
	SkippedNotTarget int
	SkippedExisting  int
	Errors           int
}

// Collector turns the tiles of a catalog page into raw product records,
// visiting the detail page of every new target-brand product.
type Collector struct {
	fetcher PageFetcher
	brands  *brands.Catalog
	specs   *specs.Parser
	limiter ratelimit.RateLimiter
	checker ImageChecker
	opts    CollectorOptions
	logger  *slog.Logger
}

func NewCollector(fetcher PageFetcher, catalog *brands.Catalog, specParser *specs.Parser, limiter ratelimit.RateLimiter, opts CollectorOptions, logger *slog.Logger) *Collector {
	if opts.MaxImages <= 0 || opts.MaxImages > models.MaxImages {
		opts.MaxImages = models.MaxImages
	}
	return &Collector{
		fetcher: fetcher,
		brands:  catalog,
		specs:   specParser,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With("component", "collector"),
	}
}

// WithImageChecker makes the collector keep only images the checker accepts.
func (c *Collector) WithImageChecker(checker ImageChecker) *Collector {
	c.checker = checker
	return c
}

// CollectPage processes the tiles of pageURL in document order. A page that
// cannot be loaded is reported as an error with an empty result.
func (c *Collector) CollectPage(ctx context.Context, pageURL string, index NameLookup) (*PageResult, error) {
	result := &PageResult{}

	if err := c.wait(ctx); err != nil {
		return result, err
	}

	html, err := loadListing(ctx, c.fetcher, pageURL, c.opts.ListingMarker, c.opts.ElementTimeout)
	if err != nil {
		c.recordError()
		return result, err
	}
	c.recordSuccess()

	doc, err := parser.NewDocument(html, pageURL)
	if err != nil {
		return result, fmt.Errorf("failed to parse catalog page: %w", err)
	}

	tiles := parser.Tiles(doc)
	if len(tiles) == 0 {
		return result, fmt.Errorf("%w: %s", ErrNoTiles, pageURL)
	}
	result.Tiles = len(tiles)
	c.logger.Info("found products on page", "url", pageURL, "count", len(tiles))

	for _, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if tile.Name == "" {
			c.logger.Debug("tile without name skipped")
			continue
		}
		if !c.brands.IsTarget(tile.Name) {
			result.SkippedNotTarget++
			continue
		}
		if !c.opts.RefreshExisting && index != nil && index.Contains(tile.Name) {
			result.SkippedExisting++
			c.logger.Debug("product already stored", "name", tile.Name)
			continue
		}
		if tile.URL == "" {
			c.logger.Warn("product link not found", "name", tile.Name)
			continue
		}

		price := tile.Price
		if price == "" {
			c.logger.Warn("price not found, using fallback", "name", tile.Name)
			price = c.opts.PriceFallback
		}

		product, err := c.collectProduct(ctx, tile.Name, price, tile.URL)
		if err != nil {
			result.Errors++
			c.logger.Warn("failed to collect product", "name", tile.Name, "url", tile.URL, "error", err)
			continue
		}

		if err := reconcile.Validate(product); err != nil {
			result.Errors++
			c.logger.Warn("product failed validation", "name", tile.Name, "error", err)
			continue
		}

		result.Products = append(result.Products, product)
	}

	if result.SkippedExisting > 0 {
		c.logger.Info("skipped stored products", "url", pageURL, "count", result.SkippedExisting)
	}

	return result, nil
}

func (c *Collector) collectProduct(ctx context.Context, name, price, productURL string) (*models.RawProduct, error) {
	c.logger.Info("processing product", "name", name)

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	if _, err := c.fetcher.Fetch(ctx, productURL); err != nil {
		c.recordError()
		return nil, fmt.Errorf("failed to fetch product page: %w", err)
	}
	c.recordSuccess()

	if c.opts.ProductMarker != "" && !c.fetcher.WaitFor(ctx, c.opts.ProductMarker, c.opts.ElementTimeout) {
		c.logger.Warn("product page marker missing, extracting anyway", "url", productURL)
	}

	html, err := c.fetcher.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read product page: %w", err)
	}

	doc, err := parser.NewDocument(html, productURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}

	product := &models.RawProduct{
		Name:              name,
		Price:             price,
		ProductURL:        productURL,
		Description:       parser.Description(doc),
		RawSpecifications: parser.Specifications(doc),
		Country:           parser.Country(doc),
		DocumentationURL:  parser.Documentation(doc),
	}
	product.ImageURLs = c.imageURLs(ctx, doc)
	product.Attributes = c.specs.Parse(product.RawSpecifications, name)

	if product.RawSpecifications == "" {
		c.logger.Warn("specifications not found", "url", productURL)
	}
	lookups, misses := doc.CacheStats()
	c.logger.Debug("product extracted",
		"name", name,
		"attributes", len(product.Attributes),
		"images", len(product.ImageURLs),
		"country", product.Country,
		"lookups", lookups,
		"tree_queries", misses,
	)

	return product, nil
}

func (c *Collector) imageURLs(ctx context.Context, doc *parser.Document) []string {
	raw := parser.GalleryImages(doc)
	urls := raw
	if c.opts.ValidateImages {
		urls = parser.FilterImageURLs(raw, doc.Origin())
		if len(urls) < len(raw) {
			c.logger.Debug("images filtered", "before", len(raw), "after", len(urls))
		}
	}

	var out []string
	for _, u := range urls {
		if len(out) == c.opts.MaxImages {
			break
		}
		if c.checker != nil && !c.checker.Available(ctx, u) {
			c.logger.Debug("image unavailable", "url", u)
			continue
		}
		out = append(out, u)
	}
	return out
}

func (c *Collector) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Collector) recordSuccess() {
	if fb, ok := c.limiter.(ratelimit.Feedback); ok {
		fb.RecordSuccess()
	}
}

func (c *Collector) recordError() {
	if fb, ok := c.limiter.(ratelimit.Feedback); ok {
		fb.RecordError()
	}
}
