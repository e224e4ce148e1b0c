package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/boiler-scraper/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		product *models.RawProduct
		valid   bool
	}{
		{"valid https", &models.RawProduct{Name: "X", ProductURL: "https://shop.by/p/x"}, true},
		{"valid http", &models.RawProduct{Name: "X", ProductURL: "http://shop.by/p/x"}, true},
		{"nil", nil, false},
		{"blank name", &models.RawProduct{Name: "  ", ProductURL: "https://shop.by/p/x"}, false},
		{"blank url", &models.RawProduct{Name: "X", ProductURL: " "}, false},
		{"relative url", &models.RawProduct{Name: "X", ProductURL: "/p/x"}, false},
		{"other scheme", &models.RawProduct{Name: "X", ProductURL: "ftp://shop.by/p/x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.product)
			if tt.valid {
				assert.NoError(t, err)
				assert.NoError(t, Validate(tt.product))
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}
