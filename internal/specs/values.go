package specs

import (
	"regexp"
	"strings"
)

// ExternalTank is the canonical water heating value for boilers that heat
// water in a separate tank.
const ExternalTank = "в выносном баке"

var (
	powerPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?(?:\s*-\s*\d+(?:[.,]\d+)?)?)`)
	numericPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
	kwUnitPattern  = regexp.MustCompile(`(?i)\s*квт\s*`)
	flowUnit       = regexp.MustCompile(`(?i)\s*(?:л/мин|l/min)\.?\s*`)

	externalTankPhrases = []string{
		"в выносном баке",
		"внешний бак",
		"выносной бак",
		"external tank",
		"внешнем баке",
	}

	placeholders = map[string]bool{
		"ø":    true,
		"∅":    true,
		"":     true,
		"-":    true,
		"—":    true,
		"нет":  true,
		"no":   true,
		"none": true,
	}
)

// NormalizeValue collapses whitespace and drops trailing colons.
func NormalizeValue(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	value = strings.TrimRight(value, ":")
	return strings.TrimSpace(value)
}

// IsPlaceholder reports whether value means "not available".
func IsPlaceholder(value string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(value))]
}

// WaterHeating cleans a DHW value. Flow rate units are removed and the number
// kept. Any mention of an external tank in the value or the whole line yields
// ExternalTank. Placeholders yield "".
func WaterHeating(value, line string) string {
	if value == "" {
		return ""
	}

	cleaned := strings.TrimSpace(flowUnit.ReplaceAllString(value, " "))
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if containsAnyLower(line, externalTankPhrases) || containsAnyLower(cleaned, externalTankPhrases) {
		return ExternalTank
	}
	if IsPlaceholder(cleaned) {
		return ""
	}
	return cleaned
}

// stripKW removes the kilowatt unit, keeping value when nothing is left.
func stripKW(value string) string {
	if cleaned := strings.TrimSpace(kwUnitPattern.ReplaceAllString(value, "")); cleaned != "" {
		return cleaned
	}
	return value
}

// powerValue returns the leading number or range in value, else value
// without its kW unit.
func powerValue(value string) string {
	value = strings.TrimSpace(value)
	if m := powerPattern.FindStringSubmatch(value); m != nil {
		return strings.TrimSpace(m[1])
	}
	return stripKW(value)
}

func containsAnyLower(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
