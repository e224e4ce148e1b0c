package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/boiler-scraper/internal/browser"
	"github.com/maltedev/boiler-scraper/internal/config"
	"github.com/maltedev/boiler-scraper/internal/models"
)

func TestBrowserOptions(t *testing.T) {
	opts := BrowserOptions(config.BrowserConfig{
		Headless:       false,
		PageTimeout:    20 * time.Second,
		UserAgent:      "test-agent",
		ViewportWidth:  1280,
		ViewportHeight: 720,
		Locale:         "be-BY",
	})

	assert.False(t, opts.Headless)
	assert.Equal(t, 20*time.Second, opts.Timeout)
	assert.Equal(t, "test-agent", opts.UserAgent)
	assert.Equal(t, 1280, opts.ViewportWidth)
	assert.Equal(t, 720, opts.ViewportHeight)
	assert.Equal(t, "be-BY", opts.Locale)

	defaults := browser.DefaultOptions()
	assert.Equal(t, defaults.TimezoneID, opts.TimezoneID, "unset fields keep defaults")
	assert.Equal(t, defaults.AcceptLanguage, opts.AcceptLanguage)
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy(config.ScraperConfig{MaxRetries: 3, RetryDelay: 5 * time.Second, RetryBackoff: 1.5})

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.Delay)
	assert.Equal(t, 1.5, p.Backoff)
	require.NotNil(t, p.Retryable)
	assert.True(t, p.Retryable(browser.ErrTimeout))
	assert.False(t, p.Retryable(errors.New("parse error")))
}

func TestOpenBackend_File(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Store: config.StoreConfig{
		Backend:  "file",
		FilePath: filepath.Join(t.TempDir(), "boilers.json"),
	}}

	backend, err := OpenBackend(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer backend.Close()

	assert.Nil(t, backend.DB)
	assert.Nil(t, backend.FinishHook())

	n, err := backend.Boilers.BulkInsert(ctx, []*models.Boiler{{Name: "TECLine EKO 9"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	run := &models.Run{Trigger: "cli"}
	require.NoError(t, backend.Runs.Create(ctx, run))
	stored, err := backend.Runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunPending, stored.Status)
}
