// Package app assembles the scraper's collaborators from configuration. Both
// binaries share it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/boiler-scraper/internal/browser"
	"github.com/maltedev/boiler-scraper/internal/config"
	"github.com/maltedev/boiler-scraper/internal/database"
	"github.com/maltedev/boiler-scraper/internal/events"
	"github.com/maltedev/boiler-scraper/internal/imagecheck"
	"github.com/maltedev/boiler-scraper/internal/jobs"
	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/observability"
	"github.com/maltedev/boiler-scraper/internal/pipeline"
	"github.com/maltedev/boiler-scraper/internal/reconcile"
	"github.com/maltedev/boiler-scraper/internal/retry"
	"github.com/maltedev/boiler-scraper/internal/robots"
	"github.com/maltedev/boiler-scraper/internal/scraper"
	"github.com/maltedev/boiler-scraper/internal/storage"
)

const robotsTimeout = 10 * time.Second

// BoilerStore is a persistent store that can also be browsed.
type BoilerStore interface {
	reconcile.Store
	FindByName(ctx context.Context, name string) (*models.Boiler, error)
	List(ctx context.Context, limit, offset int) ([]*models.Boiler, error)
	Count(ctx context.Context) (int64, error)
}

// Backend is the persistence selected by STORE_BACKEND. DB, Outbox and
// Publisher are nil for the file backend.
type Backend struct {
	DB        *database.DB
	Outbox    *database.OutboxRepository
	Publisher *events.Publisher
	Boilers   BoilerStore
	Runs      jobs.RunStore
}

func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if cfg.Store.Backend == "file" {
		store, err := storage.NewFileStore(cfg.Store.FilePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using file store", "path", cfg.Store.FilePath)
		return &Backend{Boilers: store, Runs: storage.NewMemoryRunStore()}, nil
	}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	outbox := database.NewOutboxRepository(db)
	publisher := events.NewPublisher(outbox, cfg.Relay.Stream, logger)

	return &Backend{
		DB:        db,
		Outbox:    outbox,
		Publisher: publisher,
		Boilers:   database.NewBoilerRepository(db, logger).WithRecorder(publisher),
		Runs:      database.NewRunRepository(db),
	}, nil
}

func (b *Backend) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
}

// FinishHook publishes SCRAPE_RUN_FINISHED through the outbox. It is nil
// for the file backend.
func (b *Backend) FinishHook() jobs.FinishHook {
	if b.Publisher == nil || b.DB == nil {
		return nil
	}
	return func(ctx context.Context, run *models.Run) error {
		return b.Publisher.PublishRunFinished(ctx, b.DB, run)
	}
}

func BrowserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.Timeout = cfg.PageTimeout
	opts.ProxyServer = cfg.ProxyServer

	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts.ViewportWidth = cfg.ViewportWidth
		opts.ViewportHeight = cfg.ViewportHeight
	}
	if cfg.AcceptLanguage != "" {
		opts.AcceptLanguage = cfg.AcceptLanguage
	}
	if cfg.TimezoneID != "" {
		opts.TimezoneID = cfg.TimezoneID
	}
	if cfg.Locale != "" {
		opts.Locale = cfg.Locale
	}
	return opts
}

// RetryPolicy retries transient navigation failures only.
func RetryPolicy(cfg config.ScraperConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxRetries,
		Delay:       cfg.RetryDelay,
		Backoff:     cfg.RetryBackoff,
		Retryable:   browser.IsTransient,
	}
}

// FetcherSource opens one page fetcher per run.
type FetcherSource interface {
	NewFetcher(policy retry.Policy) (*browser.Fetcher, error)
}

// NewRunnerFactory builds a pipeline on a fresh browser page for each run.
// metrics may be nil.
func NewRunnerFactory(cfg *config.Config, pages FetcherSource, store reconcile.Store, metrics *observability.Metrics, logger *slog.Logger) jobs.RunnerFactory {
	gate := robots.NewChecker(&http.Client{Timeout: robotsTimeout}, cfg.Browser.UserAgent, logger)

	var images scraper.ImageChecker
	if cfg.Scraper.CheckImages {
		images = imagecheck.NewChecker(&http.Client{}, cfg.Scraper.ImageTimeout, cfg.Browser.UserAgent, logger)
	}

	policy := RetryPolicy(cfg.Scraper)

	return func(ctx context.Context, runID uuid.UUID) (jobs.Runner, error) {
		fetcher, err := pages.NewFetcher(policy)
		if err != nil {
			return nil, fmt.Errorf("failed to open browser page: %w", err)
		}

		deps := pipeline.Deps{
			Fetcher: fetcher,
			Store:   store,
			Robots:  gate,
			Images:  images,
			Metrics: metrics,
		}
		return pipeline.New(deps, cfg, logger).WithRunID(runID), nil
	}
}
