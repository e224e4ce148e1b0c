package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/boiler-scraper/internal/brands"
	"github.com/maltedev/boiler-scraper/internal/config"
	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/observability"
	"github.com/maltedev/boiler-scraper/internal/ratelimit"
	"github.com/maltedev/boiler-scraper/internal/reconcile"
	"github.com/maltedev/boiler-scraper/internal/scraper/scrapertest"
	"github.com/maltedev/boiler-scraper/internal/storage"
)

const (
	catalog = "https://shop.by/catalog/electric/?filter=1"
	page2   = "https://shop.by/catalog/electric/page/2/?filter=1"
)

var boilerSpecs = [][3]string{
	{"Максимальная тепловая мощность", "кВт", "6"},
	{"Регулировка мощности", "кВт", "2"},
	{"Напряжение", "В", "220"},
}

func testConfig() *config.Config {
	return &config.Config{
		Site: config.SiteConfig{
			BaseURL:       "https://shop.by",
			TargetPage:    "/catalog/electric/",
			FilterParams:  "?filter=1",
			ListingMarker: ".products",
			ProductMarker: ".product",
		},
		Scraper: config.ScraperConfig{
			MaxPages:      10,
			MaxImages:     5,
			BatchSize:     50,
			RespectRobots: true,
			PriceFallback: reconcile.DefaultPrice,
		},
		Browser: config.BrowserConfig{ElementTimeout: time.Second},
		Brands:  brands.Default(),
	}
}

// testSite serves two catalog pages with three target boilers and one
// foreign brand.
func testSite(description string) *scrapertest.Fetcher {
	f := scrapertest.NewFetcher()
	f.Pages[catalog] = scrapertest.ListingPage(
		scrapertest.Tile("Vaillant eloBLOCK VE 6", "2 450,00 р.", "/product/ve6/")+
			scrapertest.Tile("Kospel EKCO 6", "900", "/product/ekco/")+
			scrapertest.Tile("TEKNIX ESPRO 12", "1 100", "/product/espro12/"),
		[]string{page2}, page2)
	f.Pages[page2] = scrapertest.ListingPage(
		scrapertest.Tile("PROTHERM СКАТ 9K", "1 900", "/product/skat9/"), nil, "")
	f.Clicks[catalog] = page2

	for _, slug := range []string{"ve6", "espro12", "skat9"} {
		f.Pages["https://shop.by/product/"+slug+"/"] = scrapertest.DetailPage(
			[]string{"/wp/" + slug + ".jpg"}, description, boilerSpecs)
	}
	return f
}

type robotsStub struct{ allow bool }

func (r robotsStub) Allowed(ctx context.Context, url string) bool {
	return r.allow
}

type countingStore struct {
	*storage.FileStore
	mu      sync.Mutex
	inserts int
}

func (s *countingStore) BulkInsert(ctx context.Context, boilers []*models.Boiler) (int, error) {
	s.mu.Lock()
	s.inserts++
	s.mu.Unlock()
	return s.FileStore.BulkInsert(ctx, boilers)
}

type panickingStore struct{ reconcile.Store }

func (panickingStore) AllNames(ctx context.Context) ([]string, error) {
	panic("store exploded")
}

type cancelOnImage struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnImage) Available(ctx context.Context, url string) bool {
	c.once.Do(c.cancel)
	return true
}

func newFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "boilers.json"))
	require.NoError(t, err)
	return store
}

func TestPipeline_CreateThenUpdate(t *testing.T) {
	store := newFileStore(t)
	cfg := testConfig()
	metrics := observability.NewMetrics()

	first := testSite("Первая версия.")
	stats, err := New(Deps{Fetcher: first, Store: store, Metrics: metrics}, cfg, slog.Default()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 3, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.SkippedNotTarget)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 3, stats.Processed())
	assert.True(t, first.IsClosed())
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ProductsTotal.WithLabelValues(observability.OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(string(models.RunCompleted))))

	stored, err := store.FindByName(context.Background(), "Vaillant eloBLOCK VE 6")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.by/product/ve6/", stored.ProductURL)
	assert.Equal(t, "6", stored.Attributes[models.AttrPower])

	t.Run("stored products are skipped", func(t *testing.T) {
		stats, err := New(Deps{Fetcher: testSite("Первая версия."), Store: store}, cfg, slog.Default()).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, stats.SkippedExisting)
		assert.Equal(t, 0, stats.Processed())
	})

	t.Run("refresh updates stored products", func(t *testing.T) {
		refresh := testConfig()
		refresh.Scraper.RefreshExisting = true

		stats, err := New(Deps{Fetcher: testSite("Вторая версия."), Store: store}, refresh, slog.Default()).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Created)
		assert.Equal(t, 3, stats.Updated)

		updated, err := store.FindByName(context.Background(), "PROTHERM СКАТ 9K")
		require.NoError(t, err)
		assert.Contains(t, updated.Description, "Вторая версия.")

		count, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("identical refresh writes nothing", func(t *testing.T) {
		refresh := testConfig()
		refresh.Scraper.RefreshExisting = true

		before, err := store.FindByName(context.Background(), "PROTHERM СКАТ 9K")
		require.NoError(t, err)

		stats, err := New(Deps{Fetcher: testSite("Вторая версия."), Store: store}, refresh, slog.Default()).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Processed())
		assert.Equal(t, 3, stats.Unchanged)

		after, err := store.FindByName(context.Background(), "PROTHERM СКАТ 9K")
		require.NoError(t, err)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	})
}

func TestPipeline_FlushesInBatches(t *testing.T) {
	store := &countingStore{FileStore: newFileStore(t)}
	cfg := testConfig()
	cfg.Scraper.BatchSize = 2

	stats, err := New(Deps{Fetcher: testSite("x"), Store: store}, cfg, slog.Default()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Created)
	// one full batch from the first page, the remainder at the end
	assert.Equal(t, 2, store.inserts)
}

func TestPipeline_MaxPages(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.MaxPages = 1

	stats, err := New(Deps{Fetcher: testSite("x"), Store: newFileStore(t)}, cfg, slog.Default()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 2, stats.Created)
}

func TestPipeline_PageFailureCountsAsError(t *testing.T) {
	f := testSite("x")
	f.Failing[page2] = true

	stats, err := New(Deps{Fetcher: f, Store: newFileStore(t)}, testConfig(), slog.Default()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.Errors)
}

func TestPipeline_RobotsDisallow(t *testing.T) {
	f := testSite("x")

	_, err := New(Deps{Fetcher: f, Store: newFileStore(t), Robots: robotsStub{allow: false}}, testConfig(), slog.Default()).
		Run(context.Background())
	assert.ErrorIs(t, err, ErrDisallowedByRobots)
	assert.Empty(t, f.Fetched)
	assert.True(t, f.IsClosed())

	t.Run("ignored when disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Scraper.RespectRobots = false

		stats, err := New(Deps{Fetcher: testSite("x"), Store: newFileStore(t), Robots: robotsStub{allow: false}}, cfg, slog.Default()).
			Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Created)
	})
}

func TestPipeline_RecoversFromPanic(t *testing.T) {
	f := testSite("x")
	metrics := observability.NewMetrics()

	stats, err := New(Deps{Fetcher: f, Store: panickingStore{}, Metrics: metrics}, testConfig(), slog.Default()).
		Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store exploded")
	require.NotNil(t, stats)
	assert.True(t, f.IsClosed())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(string(models.RunFailed))))
}

func TestPipeline_Cancellation(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := testSite("x")

		stats, err := New(Deps{Fetcher: f, Store: newFileStore(t)}, testConfig(), slog.Default()).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, stats.Pages)
		assert.True(t, f.IsClosed())
	})

	t.Run("collected products are kept", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := newFileStore(t)

		stats, err := New(Deps{
			Fetcher: testSite("x"),
			Store:   store,
			Images:  &cancelOnImage{cancel: cancel},
		}, testConfig(), slog.Default()).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, stats.Created)

		_, err = store.FindByName(context.Background(), "Vaillant eloBLOCK VE 6")
		assert.NoError(t, err)
	})
}

func TestNewLimiter(t *testing.T) {
	fixed := newLimiter(config.ScraperConfig{PageDelay: time.Second})
	_, adaptive := fixed.(ratelimit.Feedback)
	assert.False(t, adaptive)

	l := newLimiter(config.ScraperConfig{PageDelay: time.Second, AdaptiveDelay: true})
	require.Implements(t, (*ratelimit.Feedback)(nil), l)
}
