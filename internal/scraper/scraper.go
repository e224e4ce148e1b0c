package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoTiles          = errors.New("no product tiles on page")
	ErrListingNotLoaded = errors.New("listing marker not found")
)

// PageFetcher is the browser capability the walker and the collector drive.
// Implementations keep one page session, so calls must not overlap.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	WaitFor(ctx context.Context, selector string, timeout time.Duration) bool
	ClickNext(ctx context.Context, selector string) bool
	Content(ctx context.Context) (string, error)
	Close() error
}

// NameLookup answers whether a product name is already stored.
type NameLookup interface {
	Contains(name string) bool
}

// ImageChecker probes whether an image URL serves an image.
type ImageChecker interface {
	Available(ctx context.Context, url string) bool
}

// loadListing navigates to a catalog page and returns its HTML once the
// listing marker is attached.
func loadListing(ctx context.Context, f PageFetcher, url, marker string, timeout time.Duration) (string, error) {
	if _, err := f.Fetch(ctx, url); err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if marker != "" && !f.WaitFor(ctx, marker, timeout) {
		return "", fmt.Errorf("%w: %s on %s", ErrListingNotLoaded, marker, url)
	}
	return f.Content(ctx)
}
