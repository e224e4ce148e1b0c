package brands

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CountryRule maps a product name to a country when every keyword in All
// occurs in the lower-cased name.
type CountryRule struct {
	All     []string `yaml:"all"`
	Country string   `yaml:"country"`
}

// Catalog holds the hand-maintained brand tables. Matching is by
// case-insensitive substring.
type Catalog struct {
	Targets     []string      `yaml:"targets"`
	PowerBrands []string      `yaml:"power_brands"`
	Countries   []CountryRule `yaml:"countries"`
}

func DefaultTargets() []string {
	return []string{"TECLine", "vaillant eloBLOCK VE", "PROTHERM СКАТ", "TEKNIX ESPRO"}
}

func DefaultPowerBrands() []string {
	return []string{"vaillant", "eloblock", "protherm", "скат", "teknix", "espro", "tecline"}
}

func DefaultCountries() []CountryRule {
	return []CountryRule{
		{All: []string{"vaillant", "eloblock"}, Country: "Германия"},
		{All: []string{"teknix", "espro"}, Country: "Венгрия"},
		{All: []string{"protherm", "скат"}, Country: "Словакия"},
	}
}

func Default() *Catalog {
	return &Catalog{
		Targets:     DefaultTargets(),
		PowerBrands: DefaultPowerBrands(),
		Countries:   DefaultCountries(),
	}
}

// LoadFile reads a YAML catalog. Sections missing from the file keep their
// defaults.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read brands file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse brands file: %w", err)
	}

	c := Default()
	if len(file.Targets) > 0 {
		c.Targets = file.Targets
	}
	if len(file.PowerBrands) > 0 {
		c.PowerBrands = file.PowerBrands
	}
	if len(file.Countries) > 0 {
		c.Countries = file.Countries
	}
	return c, nil
}

// IsTarget reports whether name belongs to the allow-list.
func (c *Catalog) IsTarget(name string) bool {
	return containsAny(strings.ToLower(name), c.Targets)
}

// DefaultCountry returns the fallback country for name, or "".
func (c *Catalog) DefaultCountry(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range c.Countries {
		if len(rule.All) == 0 {
			continue
		}
		matched := true
		for _, kw := range rule.All {
			if !strings.Contains(lower, strings.ToLower(kw)) {
				matched = false
				break
			}
		}
		if matched {
			return rule.Country
		}
	}
	return ""
}

func containsAny(lowerName string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowerName, kw) {
			return true
		}
	}
	return false
}
