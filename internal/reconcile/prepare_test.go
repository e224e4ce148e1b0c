package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/boiler-scraper/internal/brands"
	"github.com/maltedev/boiler-scraper/internal/models"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		expected string
	}{
		{"empty", "", DefaultPrice},
		{"currency suffix", "1 200,00 р.", "1 200,00"},
		{"prefix and code", "от 950.50 BYN", "950.50"},
		{"on request kept", "Цену уточняйте у продавца", "Цену уточняйте у продавца"},
		{"no digits", "Бесплатно", DefaultPrice},
		{"abbreviated currency leaves no dot", "1 900 руб.", "1 900"},
		{"inner whitespace collapsed", "2\u00a0450,00  BYN", "2 450,00"},
		{"separators only", "р. ,", DefaultPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePrice(tt.price, DefaultPrice))
		})
	}
}

func TestPreparer_Prepare(t *testing.T) {
	p := NewPreparer(brands.Default(), "")

	raw := &models.RawProduct{
		Name:        "Vaillant eloBLOCK VE 6",
		Price:       "2 450,00 р.",
		ProductURL:  " https://shop.by/p/ve6 ",
		Description: "Котлы мощностью 6 кВт и 9 кВт могут работать от сети с напряжением ~220 В и ~380 В.",
		ImageURLs: []string{
			"https://shop.by/1.jpg", "https://shop.by/2.jpg", "https://shop.by/3.jpg",
			"https://shop.by/4.jpg", "https://shop.by/5.jpg", "https://shop.by/6.jpg",
		},
		Attributes: models.Attributes{models.AttrPower: "6"},
	}

	b := p.Prepare(raw)

	assert.Equal(t, "Vaillant eloBLOCK VE 6", b.Name)
	assert.Equal(t, "2 450,00", b.Price)
	assert.Equal(t, "https://shop.by/p/ve6", b.ProductURL)
	assert.Equal(t, "Германия", b.Country)
	assert.Equal(t, "", b.Documentation)
	assert.Equal(t, models.Attributes{
		models.AttrPower:   "6",
		models.AttrVoltage: "220 В и 380 В",
	}, b.Attributes)
	assert.Equal(t, [models.MaxImages]string{
		"https://shop.by/1.jpg", "https://shop.by/2.jpg", "https://shop.by/3.jpg",
		"https://shop.by/4.jpg", "https://shop.by/5.jpg",
	}, b.Images)

	// the source record is left untouched
	_, ok := raw.Attributes.Get(models.AttrVoltage)
	assert.False(t, ok)
}

func TestPreparer_KeepsPageValues(t *testing.T) {
	p := NewPreparer(brands.Default(), "по запросу")

	b := p.Prepare(&models.RawProduct{
		Name:             "PROTHERM СКАТ 9K",
		ProductURL:       "https://shop.by/p/skat",
		Country:          "Чехия",
		DocumentationURL: "https://shop.by/doc.pdf",
		ImageURLs:        []string{"https://shop.by/1.jpg"},
		Attributes:       models.Attributes{models.AttrVoltage: "380 В"},
	})

	assert.Equal(t, "по запросу", b.Price)
	assert.Equal(t, "Чехия", b.Country)
	assert.Equal(t, "https://shop.by/doc.pdf", b.Documentation)
	assert.Equal(t, "380 В", b.Attributes[models.AttrVoltage])
	assert.Equal(t, []string{"https://shop.by/1.jpg"}, b.ImageList())
}

func TestPreparer_DefaultCountry(t *testing.T) {
	p := NewPreparer(nil, "")

	assert.Equal(t, "Словакия", p.Prepare(&models.RawProduct{Name: "Protherm Скат 12"}).Country)
	assert.Equal(t, "", p.Prepare(&models.RawProduct{Name: "Kospel EKCO"}).Country)
}
