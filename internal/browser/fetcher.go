package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/boiler-scraper/internal/retry"
)

// Fetcher drives a single long-lived page. It is not safe for concurrent use:
// the page keeps navigation state between calls.
type Fetcher struct {
	page    playwright.Page
	policy  retry.Policy
	timeout time.Duration
	logger  *slog.Logger
}

// Fetch navigates to url and returns the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return retry.DoValue(ctx, f.policy, func(ctx context.Context) (string, error) {
		return f.navigate(url)
	})
}

func (f *Fetcher) navigate(url string) (string, error) {
	resp, err := f.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(f.timeout.Milliseconds())),
	})
	if err != nil {
		f.logger.Warn("navigation failed", "url", url, "error", err)
		return "", classify(err)
	}

	if resp != nil && resp.Status() >= 500 {
		return "", fmt.Errorf("%w: %s returned status %d", ErrNavigation, url, resp.Status())
	}

	content, err := f.page.Content()
	if err != nil {
		return "", classify(err)
	}

	return content, nil
}

// WaitFor blocks until selector is attached or timeout elapses.
func (f *Fetcher) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}

	_, err := f.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		f.logger.Debug("marker not found", "selector", selector, "error", err)
		return false
	}
	return true
}

// ClickNext clicks the first element matching selector.
func (f *Fetcher) ClickNext(ctx context.Context, selector string) bool {
	if ctx.Err() != nil {
		return false
	}

	control := f.page.Locator(selector).First()

	count, err := control.Count()
	if err != nil || count == 0 {
		return false
	}

	if err := control.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(f.timeout.Milliseconds())),
	}); err != nil {
		f.logger.Warn("failed to click navigation control", "selector", selector, "error", err)
		return false
	}
	return true
}

// Content returns the HTML of whatever the page currently shows.
func (f *Fetcher) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := f.page.Content()
	if err != nil {
		return "", classify(err)
	}
	return content, nil
}

func (f *Fetcher) Close() error {
	if err := f.page.Close(); err != nil {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}
