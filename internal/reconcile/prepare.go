package reconcile

import (
	"regexp"
	"strings"

	"github.com/maltedev/boiler-scraper/internal/brands"
	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/specs"
)

// DefaultPrice is stored when the site shows no price.
const DefaultPrice = "Цену и наличие товара уточняйте у продавца"

const priceOnRequestToken = "уточняйте"

// Zs keeps the no-break spaces shops use as thousands separators.
var priceNoise = regexp.MustCompile(`[^\d,.\s\p{Zs}]`)

// Preparer turns a collected record into the entity the store persists.
type Preparer struct {
	brands        *brands.Catalog
	priceFallback string
}

func NewPreparer(catalog *brands.Catalog, priceFallback string) *Preparer {
	if catalog == nil {
		catalog = brands.Default()
	}
	if priceFallback == "" {
		priceFallback = DefaultPrice
	}
	return &Preparer{brands: catalog, priceFallback: priceFallback}
}

func (p *Preparer) Prepare(raw *models.RawProduct) *models.Boiler {
	attrs := make(models.Attributes, len(raw.Attributes)+1)
	for k, v := range raw.Attributes {
		attrs.Set(k, v)
	}

	if _, ok := attrs.Get(models.AttrVoltage); !ok {
		power, _ := attrs.Get(models.AttrPower)
		attrs.Set(models.AttrVoltage, specs.VoltageFromDescription(raw.Description, raw.Name, power))
	}

	country := strings.TrimSpace(raw.Country)
	if country == "" {
		country = p.brands.DefaultCountry(raw.Name)
	}

	b := &models.Boiler{
		Name:          raw.Name,
		Price:         NormalizePrice(raw.Price, p.priceFallback),
		ProductURL:    strings.TrimSpace(raw.ProductURL),
		Description:   strings.TrimSpace(raw.Description),
		Country:       country,
		Documentation: strings.TrimSpace(raw.DocumentationURL),
		Attributes:    attrs,
	}
	for i, u := range raw.ImageURLs {
		if i == models.MaxImages {
			break
		}
		b.Images[i] = u
	}

	return b
}

// NormalizePrice keeps digits and separators of a price. Prices that ask
// the buyer to contact the seller are kept verbatim; anything that cleans to
// nothing becomes fallback.
func NormalizePrice(price, fallback string) string {
	if strings.TrimSpace(price) == "" {
		return fallback
	}
	if strings.Contains(strings.ToLower(price), priceOnRequestToken) {
		return strings.TrimSpace(price)
	}

	cleaned := priceNoise.ReplaceAllString(price, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.TrimRight(cleaned, " .,")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
