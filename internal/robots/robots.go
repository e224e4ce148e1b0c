// Package robots gates a crawl on the site's robots.txt.
package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

const defaultTimeout = 30 * time.Second

// Checker tests URLs against robots.txt for one user agent. A robots.txt that
// cannot be fetched or parsed allows everything.
type Checker struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

func NewChecker(client *http.Client, userAgent string, logger *slog.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Checker{
		client:    client,
		userAgent: userAgent,
		logger:    logger.With("component", "robots"),
	}
}

// Allowed reports whether target may be crawled.
func (c *Checker) Allowed(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		c.logger.Warn("cannot check robots.txt for malformed url", "url", target)
		return true
	}

	data, err := c.fetch(ctx, u)
	if err != nil {
		c.logger.Warn("robots.txt unavailable, crawling allowed", "host", u.Host, "error", err)
		return true
	}

	allowed := data.FindGroup(c.userAgent).Test(u.RequestURI())
	c.logger.Debug("robots.txt checked", "path", u.RequestURI(), "allowed", allowed)
	return allowed
}

func (c *Checker) fetch(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// robotstxt reads 5xx as "disallow all"; an erroring server is treated
	// as unreachable here.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return data, nil
}
