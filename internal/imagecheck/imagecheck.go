// Package imagecheck probes whether image URLs actually serve images.
package imagecheck

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultTimeout = 3 * time.Second
	sniffLength    = 512
)

// Checker answers with a HEAD request and falls back to sniffing the first
// bytes of the body when the server's Content-Type is missing or generic.
type Checker struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

func NewChecker(client *http.Client, timeout time.Duration, userAgent string, logger *slog.Logger) *Checker {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger.With("component", "imagecheck"),
	}
}

// Available reports whether url answers 200 with image content. Any error
// counts as unavailable.
func (c *Checker) Available(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodHead, url, nil)
	if err != nil {
		c.logger.Debug("image probe failed", "url", url, "error", err)
		return false
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK && isImageType(resp.Header.Get("Content-Type")):
		return true
	case resp.StatusCode == http.StatusOK && isGenericType(resp.Header.Get("Content-Type")):
	case resp.StatusCode == http.StatusMethodNotAllowed:
	default:
		c.logger.Debug("image unavailable", "url", url, "status", resp.StatusCode,
			"content_type", resp.Header.Get("Content-Type"))
		return false
	}

	return c.sniff(ctx, url)
}

func (c *Checker) sniff(ctx context.Context, url string) bool {
	resp, err := c.do(ctx, http.MethodGet, url, map[string]string{"Range": "bytes=0-511"})
	if err != nil {
		c.logger.Debug("image sniff failed", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return false
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, sniffLength))
	if err != nil && len(head) == 0 {
		return false
	}

	detected := mimetype.Detect(head)
	ok := strings.HasPrefix(detected.String(), "image/")
	c.logger.Debug("image sniffed", "url", url, "mime", detected.String(), "available", ok)
	return ok
}

func (c *Checker) do(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "image/")
}

func isGenericType(contentType string) bool {
	switch mediaType(contentType) {
	case "", "application/octet-stream", "binary/octet-stream", "application/unknown":
		return true
	}
	return false
}
