// Package pipeline runs one crawl of the boiler catalog: robots gate, page
// discovery, collection and batched reconciliation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/boiler-scraper/internal/config"
	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/observability"
	"github.com/maltedev/boiler-scraper/internal/ratelimit"
	"github.com/maltedev/boiler-scraper/internal/reconcile"
	"github.com/maltedev/boiler-scraper/internal/scraper"
	"github.com/maltedev/boiler-scraper/internal/specs"
)

var ErrDisallowedByRobots = errors.New("catalog disallowed by robots.txt")

// RobotsGate decides whether a URL may be crawled.
type RobotsGate interface {
	Allowed(ctx context.Context, url string) bool
}

// Deps are the collaborators of a run. Fetcher and Store are required; the
// rest may be nil.
type Deps struct {
	Fetcher scraper.PageFetcher
	Store   reconcile.Store
	Robots  RobotsGate
	Images  scraper.ImageChecker
	Limiter ratelimit.RateLimiter
	Metrics *observability.Metrics
}

// Stats are the run-level counters reported at the end of every run.
type Stats struct {
	RunID            uuid.UUID     `json:"run_id"`
	Pages            int           `json:"pages"`
	Created          int           `json:"created"`
	Updated          int           `json:"updated"`
	Unchanged        int           `json:"unchanged"`
	Conflicts        int           `json:"conflicts"`
	SkippedNotTarget int           `json:"skipped_not_target"`
	SkippedExisting  int           `json:"skipped_existing"`
	Errors           int           `json:"errors"`
	Duration         time.Duration `json:"duration"`
}

// Processed is the number of products written by the run.
func (s *Stats) Processed() int {
	return s.Created + s.Updated
}

func (s *Stats) addBatch(r reconcile.BatchResult) {
	s.Created += r.Created
	s.Updated += r.Updated
	s.Unchanged += r.Unchanged
	s.Conflicts += r.Conflicts
	s.Errors += r.Errors
}

type Pipeline struct {
	runID     uuid.UUID
	deps      Deps
	cfg       *config.Config
	walker    *scraper.Walker
	collector *scraper.Collector
	engine    *reconcile.Engine
	logger    *slog.Logger
}

func New(deps Deps, cfg *config.Config, logger *slog.Logger) *Pipeline {
	if deps.Limiter == nil {
		deps.Limiter = newLimiter(cfg.Scraper)
	}

	walker := scraper.NewWalker(deps.Fetcher, deps.Limiter, scraper.WalkerConfig{
		MaxPages:        cfg.Scraper.MaxPages,
		PaginationDelay: cfg.Scraper.PaginationDelay,
		ListingMarker:   cfg.Site.ListingMarker,
		ElementTimeout:  cfg.Browser.ElementTimeout,
		LinkMatchers:    linkMatchers(cfg.Site),
	}, logger)

	collector := scraper.NewCollector(deps.Fetcher, cfg.Brands, specs.NewParser(cfg.Brands.PowerBrands), deps.Limiter,
		scraper.CollectorOptions{
			ListingMarker:   cfg.Site.ListingMarker,
			ProductMarker:   cfg.Site.ProductMarker,
			ElementTimeout:  cfg.Browser.ElementTimeout,
			MaxImages:       cfg.Scraper.MaxImages,
			ValidateImages:  cfg.Scraper.ValidateImages,
			RefreshExisting: cfg.Scraper.RefreshExisting,
			PriceFallback:   cfg.Scraper.PriceFallback,
		}, logger)
	if deps.Images != nil {
		collector.WithImageChecker(deps.Images)
	}

	preparer := reconcile.NewPreparer(cfg.Brands, cfg.Scraper.PriceFallback)

	return &Pipeline{
		deps:      deps,
		cfg:       cfg,
		walker:    walker,
		collector: collector,
		engine:    reconcile.NewEngine(deps.Store, preparer, logger),
		logger:    logger.With("component", "pipeline"),
	}
}

// WithRunID makes the next Run report id instead of a fresh one.
func (p *Pipeline) WithRunID(id uuid.UUID) *Pipeline {
	p.runID = id
	return p
}

// linkMatchers keeps pagination links that stay inside the filtered catalog.
func linkMatchers(site config.SiteConfig) []string {
	var out []string
	if site.TargetPage != "" {
		out = append(out, site.TargetPage)
	}
	if f := strings.TrimPrefix(site.FilterParams, "?"); f != "" {
		out = append(out, f)
	}
	return out
}

// Run crawls the catalog once. It always closes the fetcher and always
// returns the counters gathered so far, also when it fails.
func (p *Pipeline) Run(ctx context.Context) (stats *Stats, err error) {
	stats = &Stats{RunID: p.runID}
	if stats.RunID == uuid.Nil {
		stats.RunID = uuid.New()
	}
	logger := p.logger.With("run_id", stats.RunID)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline crashed",
				"critical", true,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("pipeline panic: %v", r)
		}

		if closeErr := p.deps.Fetcher.Close(); closeErr != nil {
			logger.Warn("failed to close page fetcher", "error", closeErr)
		}

		stats.Duration = time.Since(started)
		status := models.RunCompleted
		if err != nil {
			status = models.RunFailed
			logger.Error("scrape failed", "critical", true, "error", err)
		}
		p.deps.Metrics.RunFinished(string(status), stats.Duration)

		logger.Info("scrape finished",
			"status", status,
			"pages", stats.Pages,
			"processed", stats.Processed(),
			"created", stats.Created,
			"updated", stats.Updated,
			"unchanged", stats.Unchanged,
			"conflicts", stats.Conflicts,
			"skipped_not_target", stats.SkippedNotTarget,
			"skipped_existing", stats.SkippedExisting,
			"errors", stats.Errors,
			"duration", stats.Duration,
		)
	}()

	err = p.run(ctx, stats, logger)
	return stats, err
}

func (p *Pipeline) run(ctx context.Context, stats *Stats, logger *slog.Logger) error {
	startURL := p.cfg.CatalogURL()

	if p.cfg.Scraper.RespectRobots && p.deps.Robots != nil && !p.deps.Robots.Allowed(ctx, startURL) {
		return fmt.Errorf("%w: %s", ErrDisallowedByRobots, startURL)
	}

	index, err := p.engine.LoadIndex(ctx)
	if err != nil {
		return err
	}
	logger.Info("starting scrape", "url", startURL, "stored", index.Len())

	pages := p.walker.Walk(ctx, startURL)

	batchSize := p.cfg.Scraper.BatchSize
	var batch []*models.RawProduct

	for i, pageURL := range pages {
		if ctx.Err() != nil {
			break
		}

		logger.Info("processing page", "page", i+1, "of", len(pages), "url", pageURL)
		result, err := p.collector.CollectPage(ctx, pageURL, index)
		stats.Pages++
		p.deps.Metrics.PageVisited()
		p.countPage(stats, result)

		if err != nil {
			stats.Errors++
			p.deps.Metrics.Products(observability.OutcomeError, 1)
			logger.Error("failed to collect page", "url", pageURL, "error", err)
		}
		if result != nil {
			batch = append(batch, result.Products...)
		}

		for len(batch) >= batchSize {
			p.flush(ctx, stats, batch[:batchSize], index)
			batch = batch[batchSize:]
		}
	}

	if len(batch) > 0 {
		// Records already collected are kept even when the run was cancelled.
		p.flush(context.WithoutCancel(ctx), stats, batch, index)
	}

	return ctx.Err()
}

func (p *Pipeline) countPage(stats *Stats, result *scraper.PageResult) {
	if result == nil {
		return
	}
	stats.SkippedNotTarget += result.SkippedNotTarget
	stats.SkippedExisting += result.SkippedExisting
	stats.Errors += result.Errors

	p.deps.Metrics.Products(observability.OutcomeSkippedNotTarget, result.SkippedNotTarget)
	p.deps.Metrics.Products(observability.OutcomeSkippedExisting, result.SkippedExisting)
	p.deps.Metrics.Products(observability.OutcomeError, result.Errors)
}

func (p *Pipeline) flush(ctx context.Context, stats *Stats, batch []*models.RawProduct, index *reconcile.NameIndex) {
	result := p.engine.Flush(ctx, batch, index)
	stats.addBatch(result)

	p.deps.Metrics.BatchFlushed()
	p.deps.Metrics.Products(observability.OutcomeCreated, result.Created)
	p.deps.Metrics.Products(observability.OutcomeUpdated, result.Updated)
	p.deps.Metrics.Products(observability.OutcomeError, result.Errors)
}

// newLimiter returns a fixed page delay, or one that backs off after repeated
// fetch failures when SCRAPER_ADAPTIVE_DELAY is set.
func newLimiter(cfg config.ScraperConfig) ratelimit.RateLimiter {
	if cfg.AdaptiveDelay {
		return ratelimit.NewAdaptiveRateLimiter(cfg.PageDelay, cfg.PageDelay)
	}
	return ratelimit.NewFixed(cfg.PageDelay)
}
