package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	descriptionHeading = "Описание"
	specsHeading       = "Технические характеристики"
	instructionToken   = "Инструкция"
)

var (
	descriptionPanels = []string{
		"div.woocommerce-Tabs-panel--description",
		"div.entry-content",
	}

	specContainers = []string{
		"table.spec_sheet",
		"div.product-short-description",
		"div.woocommerce-product-details__short-description",
		"div.entry-content",
		"div.woocommerce-Tabs-panel--description",
		"table.woocommerce-product-attributes",
	}

	specStartMarkers = []string{
		"Мощность",
		"Питание от сети",
		"Напряжение",
		"Регулировка мощности",
		"Технические характеристики",
	}

	specEndMarkers = []string{
		"Возможно подключение датчика уличной температуры",
		"Документация",
		"Инструкция",
		"Описание",
		"Доставка",
	}

	countryLabels = []string{
		"Производство",
		"Страна производства",
		"Страна-производитель",
		"Производитель",
		"Made in",
		"Country",
	}

	shortCountryLabels = []string{"Производство", "Производитель"}

	shortDescriptions = []string{
		"div.product-short-description",
		"div.woocommerce-product-details__short-description",
	}

	documentationKeywords = []string{"инструкция", "документация", "руководство", "manual", "guide"}

	documentationAreas = []string{
		"div.woocommerce-Tabs-panel--description",
		"div.entry-content",
		"div.product-short-description",
	}
)

// Description returns the product narrative from the description panel.
// Text stops before an instruction link or at the technical characteristics
// heading.
func Description(d *Document) string {
	container := d.FirstOf(descriptionPanels...)
	if container.Length() == 0 {
		return ""
	}

	hasInstruction := findInstructionLink(container).Length() > 0

	var parts []string
	container.ChildrenFiltered("p, h2, h3, div").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strippedText(el)
		if text == descriptionHeading {
			return true
		}
		if strings.Contains(text, specsHeading) {
			return false
		}

		if hasInstruction {
			if link := findInstructionLink(el); link.Length() > 0 {
				if before := textBefore(el.Get(0), link.Get(0)); before != "" {
					parts = append(parts, before)
				}
				return false
			}
		}

		if text != "" {
			parts = append(parts, text)
		}
		return true
	})

	joined := strings.Join(parts, " ")
	joined = strings.ReplaceAll(joined, "|", "-")
	return collapseSpaces(joined)
}

func findInstructionLink(s *goquery.Selection) *goquery.Selection {
	return s.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.Contains(strippedText(a), instructionToken)
	}).First()
}

// Specifications returns "label: value" lines from the first container that
// yields any.
func Specifications(d *Document) string {
	for _, selector := range specContainers {
		container := d.First(selector)
		if container.Length() == 0 {
			continue
		}

		var lines []string
		if goquery.NodeName(container) == "table" {
			if container.HasClass("spec_sheet") {
				lines = specSheetLines(container)
			} else {
				lines = attributeTableLines(container)
			}
		}
		if len(lines) == 0 {
			lines = markedTextLines(textLines(container))
		}

		if len(lines) > 0 {
			return strings.TrimSpace(strings.Join(lines, "\n"))
		}
	}
	return ""
}

// specSheetLines reads (label, unit, value) or (label, value) rows.
func specSheetLines(table *goquery.Selection) []string {
	var lines []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		switch {
		case cells.Length() >= 3:
			label := strippedText(cells.Eq(0))
			unit := strippedText(cells.Eq(1))
			value := strings.Join(textLines(cells.Eq(2)), " ")
			if label == "" || value == "" {
				return
			}
			if unit != "" {
				lines = append(lines, label+": "+value+" "+unit)
			} else {
				lines = append(lines, label+": "+value)
			}
		case cells.Length() == 2:
			label := strippedText(cells.Eq(0))
			value := strings.Join(textLines(cells.Eq(1)), " ")
			if label != "" && value != "" {
				lines = append(lines, label+": "+value)
			}
		}
	})
	return lines
}

func attributeTableLines(table *goquery.Selection) []string {
	var lines []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		th := row.Find("th").First()
		td := row.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return
		}
		key, value := strippedText(th), strippedText(td)
		if key != "" && value != "" {
			lines = append(lines, key+": "+value)
		}
	})
	return lines
}

// markedTextLines keeps colon lines between the first start marker and the
// first end marker after it, both inclusive.
func markedTextLines(lines []string) []string {
	start := -1
	for i, line := range lines {
		if containsAny(line, specStartMarkers) {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}

	end := len(lines) - 1
	for i := start + 1; i < len(lines); i++ {
		if containsAny(lines[i], specEndMarkers) {
			end = i
			break
		}
	}

	var out []string
	for _, line := range lines[start : end+1] {
		if line == descriptionHeading || line == specsHeading {
			continue
		}
		if strings.Contains(line, ":") {
			out = append(out, line)
		}
	}
	return out
}

// Country returns the country of origin stated on the page, or "".
func Country(d *Document) string {
	if panel := d.First(`div[itemprop="description"]`); panel.Length() > 0 {
		for _, line := range textLines(panel) {
			for _, label := range countryLabels {
				if c := countryFromLine(line, label); c != "" {
					return c
				}
			}
		}
	}

	if short := d.FirstOf(shortDescriptions...); short.Length() > 0 {
		for _, line := range textLines(short) {
			if !containsAnyFold(line, shortCountryLabels) {
				continue
			}
			if c := countryFromLine(line, "Производство"); c != "" {
				return c
			}
		}
	}

	return ""
}

func countryFromLine(line, label string) string {
	lower := strings.ToLower(line)
	idx := strings.Index(lower, strings.ToLower(label))
	if idx < 0 {
		return ""
	}

	var country string
	if colon := strings.LastIndex(line, ":"); colon >= 0 {
		country = line[colon+1:]
	} else {
		rest := idx + len(strings.ToLower(label))
		if len(lower) == len(line) {
			country = line[rest:]
		} else {
			country = lower[rest:]
		}
	}

	country = strings.ReplaceAll(country, ".", "")
	return strings.TrimSpace(country)
}

// Documentation returns the absolute URL of the first manual-like link.
func Documentation(d *Document) string {
	areas := append([]string{`div[itemprop="description"]`}, documentationAreas...)
	for _, selector := range areas {
		area := d.First(selector)
		if area.Length() == 0 {
			continue
		}

		var found string
		area.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if !containsAnyFold(strippedText(a), documentationKeywords) {
				return true
			}
			href, _ := a.Attr("href")
			found = d.resolveOrigin(href)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
