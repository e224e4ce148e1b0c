package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/boiler-scraper/internal/parser"
	"github.com/maltedev/boiler-scraper/internal/ratelimit"
	"github.com/maltedev/boiler-scraper/internal/retry"
)

type WalkerConfig struct {
	MaxPages        int
	PaginationDelay time.Duration
	ListingMarker   string
	ElementTimeout  time.Duration
	// LinkMatchers select catalog links inside the pagination container.
	LinkMatchers []string
}

// Walker discovers the catalog page URLs, first from the links in the
// pagination container and then by clicking through "next" controls.
type Walker struct {
	fetcher PageFetcher
	limiter ratelimit.RateLimiter
	cfg     WalkerConfig
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewWalker(fetcher PageFetcher, limiter ratelimit.RateLimiter, cfg WalkerConfig, logger *slog.Logger) *Walker {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	return &Walker{
		fetcher: fetcher,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With("component", "pagination"),
		sleep:   retry.Sleep,
	}
}

// Walk returns catalog page URLs in discovery order. The start URL is always
// first, even when nothing else could be discovered.
func (w *Walker) Walk(ctx context.Context, startURL string) []string {
	pages := []string{startURL}
	seen := map[string]bool{startURL: true}
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			pages = append(pages, u)
		}
	}

	w.logger.Info("collecting catalog pages", "start", startURL)

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return pages
		}
	}

	html, err := loadListing(ctx, w.fetcher, startURL, w.cfg.ListingMarker, w.cfg.ElementTimeout)
	if err != nil {
		w.logger.Warn("failed to load first catalog page", "url", startURL, "error", err)
		return pages
	}

	doc, err := parser.NewDocument(html, startURL)
	if err != nil {
		w.logger.Warn("failed to parse first catalog page", "error", err)
		return pages
	}

	if !parser.HasPagination(doc) {
		w.logger.Info("no pagination found, using first page only")
		return pages
	}

	for _, link := range parser.PaginationLinks(doc, w.cfg.LinkMatchers...) {
		add(link)
	}

	visited := map[string]bool{startURL: true}
	checked := 1

	for checked < w.cfg.MaxPages {
		if ctx.Err() != nil {
			break
		}

		selector, next, ok := parser.NextControl(doc)
		if !ok {
			w.logger.Debug("next control missing or disabled")
			break
		}
		if visited[next] {
			w.logger.Debug("next page already visited", "url", next)
			break
		}
		add(next)

		if !w.fetcher.ClickNext(ctx, selector) {
			w.logger.Warn("failed to follow next control", "selector", selector, "url", next)
			break
		}
		visited[next] = true
		checked++

		if err := w.sleep(ctx, w.cfg.PaginationDelay); err != nil {
			break
		}

		if !w.fetcher.WaitFor(ctx, w.cfg.ListingMarker, w.cfg.ElementTimeout) {
			w.logger.Warn("next page did not load", "page", checked, "url", next)
			break
		}

		html, err := w.fetcher.Content(ctx)
		if err != nil {
			w.logger.Warn("failed to read next page", "url", next, "error", err)
			break
		}
		if doc, err = parser.NewDocument(html, next); err != nil {
			w.logger.Warn("failed to parse next page", "url", next, "error", err)
			break
		}
	}

	if len(pages) > w.cfg.MaxPages {
		pages = pages[:w.cfg.MaxPages]
	}

	w.logger.Info("catalog pages collected", "pages", len(pages))
	return pages
}
