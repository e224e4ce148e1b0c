// Package reconcile validates collected products and upserts them into a
// store keyed by product name.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maltedev/boiler-scraper/internal/models"
)

var ErrInvalidRecord = errors.New("invalid product record")

var acceptedSchemes = []string{"http://", "https://"}

// Validate rejects records that must never be persisted. It does not modify
// the record, so calling it again is safe.
func Validate(p *models.RawProduct) error {
	if p == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	if strings.TrimSpace(p.ProductURL) == "" {
		return fmt.Errorf("%w: empty product URL", ErrInvalidRecord)
	}
	for _, scheme := range acceptedSchemes {
		if strings.HasPrefix(p.ProductURL, scheme) {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported product URL %q", ErrInvalidRecord, p.ProductURL)
}
