package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://azbukatepla.by/product-cat/kotly-otopleniya/elektricheskie-kotly?fwp__k_type=elektricheskij", cfg.CatalogURL())
	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Scraper.RetryDelay)
	assert.Equal(t, time.Second, cfg.Scraper.PageDelay)
	assert.Equal(t, 50, cfg.Scraper.MaxPages)
	assert.Equal(t, 5, cfg.Scraper.MaxImages)
	assert.Equal(t, 50, cfg.Scraper.BatchSize)
	assert.Equal(t, 15*time.Second, cfg.Browser.PageTimeout)
	assert.False(t, cfg.Scraper.RefreshExisting)
	assert.Contains(t, cfg.Brands.Targets, "TECLine")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_BATCH_SIZE", "10")
	t.Setenv("SCRAPER_PAGE_DELAY", "250ms")
	t.Setenv("SCRAPER_REFRESH_EXISTING", "true")
	t.Setenv("SCRAPER_TARGET_BRANDS", "Kospel, ЭВАН ,")
	t.Setenv("SCRAPER_MAX_PAGES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Scraper.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.PageDelay)
	assert.True(t, cfg.Scraper.RefreshExisting)
	assert.Equal(t, []string{"Kospel", "ЭВАН"}, cfg.Brands.Targets)
	assert.Equal(t, 50, cfg.Scraper.MaxPages)
}

func TestLoad_BrandsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brands.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: [Zota]\n"), 0o644))
	t.Setenv("BRANDS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Zota"}, cfg.Brands.Targets)

	t.Setenv("BRANDS_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Site.BaseURL = "/catalog" },
			wantErr: "SITE_BASE_URL",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Scraper.BatchSize = 0 },
			wantErr: "SCRAPER_BATCH_SIZE",
		},
		{
			name:    "too many images",
			mutate:  func(c *Config) { c.Scraper.MaxImages = 9 },
			wantErr: "SCRAPER_MAX_IMAGES",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Scraper.MaxRetries = 0 },
			wantErr: "SCRAPER_MAX_RETRIES",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Store.Backend = "mongo" },
			wantErr: "STORE_BACKEND",
		},
		{
			name:    "no target brands",
			mutate:  func(c *Config) { c.Brands.Targets = nil },
			wantErr: "target brand",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
