// Package specs turns raw "label: value" specification text into normalized
// boiler attributes.
package specs

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/maltedev/boiler-scraper/internal/models"
)

const (
	labelMaxPower   = "максимальная тепловая мощность"
	labelRegulation = "регулировка мощности"
	labelPower      = "мощность"
)

// Parser is stateless apart from the brand keywords that enable the
// dedicated power extraction.
type Parser struct {
	powerBrands []string
}

func NewParser(powerBrands []string) *Parser {
	lower := make([]string, 0, len(powerBrands))
	for _, b := range powerBrands {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			lower = append(lower, b)
		}
	}
	return &Parser{powerBrands: lower}
}

// IsPowerBrand reports whether productName gets dedicated power extraction.
func (p *Parser) IsPowerBrand(productName string) bool {
	return containsAnyLower(productName, p.powerBrands)
}

// specLine is one "label: value" line split at the first colon.
type specLine struct {
	raw   string
	label string
	value string
}

func splitLines(raw string) []specLine {
	var lines []specLine
	for _, line := range strings.Split(norm.NFC.String(raw), "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		lines = append(lines, specLine{
			raw:   line,
			label: strings.TrimSpace(label),
			value: strings.TrimSpace(value),
		})
	}
	return lines
}

// Parse maps raw specification text to attributes. It is deterministic and
// never fails; unrecognized lines are ignored.
func (p *Parser) Parse(raw, productName string) models.Attributes {
	attrs := make(models.Attributes)
	if strings.TrimSpace(raw) == "" {
		return attrs
	}

	dedicated := p.ExtractPower(raw, productName)
	for k, v := range dedicated {
		attrs.Set(k, v)
	}

	for _, line := range splitLines(raw) {
		key, ok := MatchLabel(line.label)
		if !ok {
			continue
		}
		if _, taken := dedicated[key]; taken {
			continue
		}

		value := NormalizeValue(line.value)

		switch key {
		case models.AttrPower, models.AttrPowerRegulation:
			attrs.Set(key, stripKW(value))
		case models.AttrTempRange:
			attrs.Set(redirectTempRange(strings.ToLower(line.label)), value)
		case models.AttrWaterHeating:
			if v := WaterHeating(value, line.raw); v != "" {
				attrs.Set(key, v)
			}
		case models.AttrExpansionTank:
			if !IsPlaceholder(value) {
				attrs.Set(key, value)
			}
		default:
			attrs.Set(key, value)
		}
	}

	return attrs
}

// ExtractPower applies the power-brand rules: the maximum thermal power line
// wins over the power regulation line regardless of order, regulation is
// always kept on its own, and a plain power line is the last resort. Other
// brands get an empty result.
func (p *Parser) ExtractPower(raw, productName string) models.Attributes {
	result := make(models.Attributes)
	if !p.IsPowerBrand(productName) {
		return result
	}

	lines := splitLines(raw)
	maxFound := false

	for _, line := range lines {
		if line.value == "" {
			continue
		}
		label := strings.ToLower(line.label)

		switch {
		case strings.Contains(label, labelMaxPower):
			if !maxFound {
				result.Set(models.AttrPower, powerValue(line.value))
				maxFound = true
			}
		case strings.Contains(label, labelRegulation):
			if _, ok := result[models.AttrPowerRegulation]; ok {
				continue
			}
			v := powerValue(line.value)
			result.Set(models.AttrPowerRegulation, v)
			if !maxFound {
				result.Set(models.AttrPower, v)
			}
		}
	}

	if _, ok := result[models.AttrPower]; ok {
		return result
	}

	for _, line := range lines {
		label := strings.ToLower(line.label)
		if line.value == "" || !strings.Contains(label, labelPower) ||
			strings.Contains(label, "максимальная") || strings.Contains(label, "регулировка") {
			continue
		}
		result.Set(models.AttrPower, powerValue(line.value))
		break
	}

	return result
}
