package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/boiler-scraper/internal/app"
	"github.com/maltedev/boiler-scraper/internal/browser"
	"github.com/maltedev/boiler-scraper/internal/config"
	"github.com/maltedev/boiler-scraper/internal/jobs"
	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/pkg/logger"
)

func main() {
	var (
		maxPages  = flag.Int("max-pages", 0, "Maximum catalog pages to visit (0 = SCRAPER_MAX_PAGES)")
		batchSize = flag.Int("batch-size", 0, "Records per store write (0 = SCRAPER_BATCH_SIZE)")
		dryRun    = flag.Bool("dry-run", false, "Write to the JSON file store instead of Postgres")
		storeFile = flag.String("store-file", "", "File used by -dry-run (default STORE_FILE)")
		refresh   = flag.Bool("refresh", false, "Re-extract products that are already stored")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *maxPages > 0 {
		cfg.Scraper.MaxPages = *maxPages
	}
	if *batchSize > 0 {
		cfg.Scraper.BatchSize = *batchSize
	}
	if *dryRun {
		cfg.Store.Backend = "file"
	}
	if *storeFile != "" {
		cfg.Store.FilePath = *storeFile
	}
	if *refresh {
		cfg.Scraper.RefreshExisting = true
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting boiler scraper", "catalog", cfg.CatalogURL(), "store", cfg.Store.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := scrape(ctx, cfg, logger)
	if run != nil {
		printSummary(run)
	}
	if err != nil {
		logger.Error("Scrape failed", "error", err)
		os.Exit(1)
	}
}

func scrape(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*models.Run, error) {
	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer backend.Close()

	b, err := browser.New(app.BrowserOptions(cfg.Browser))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer b.Close()

	manager := jobs.NewManager(backend.Runs, app.NewRunnerFactory(cfg, b, backend.Boilers, nil, logger), logger).
		WithFinishHook(backend.FinishHook())

	return manager.RunNow(ctx, "cli")
}

func printSummary(run *models.Run) {
	fmt.Println("\n=== Scrape Summary ===")
	fmt.Printf("Run:                %s\n", run.ID)
	fmt.Printf("Status:             %s\n", run.Status)
	fmt.Printf("Pages visited:      %d\n", run.Pages)
	fmt.Printf("Processed:          %d\n", run.Created+run.Updated)
	fmt.Printf("  created:          %d\n", run.Created)
	fmt.Printf("  updated:          %d\n", run.Updated)
	fmt.Printf("Skipped (brand):    %d\n", run.SkippedNotTarget)
	fmt.Printf("Skipped (stored):   %d\n", run.SkippedExisting)
	fmt.Printf("Errors:             %d\n", run.Errors)
	if run.StartedAt != nil && run.FinishedAt != nil {
		fmt.Printf("Duration:           %s\n", run.FinishedAt.Sub(*run.StartedAt).Round(time.Millisecond))
	}
	if run.Error != "" {
		fmt.Printf("Failure:            %s\n", run.Error)
	}
}
