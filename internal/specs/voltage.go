package specs

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	voltageLowPower = regexp.MustCompile(`(?is)котлы\s+мощностью\s+6\s+квт\s+и\s+9\s+квт` +
		`.*?(?:могут\s+работать|работать)` +
		`.*?(?:от\s+сети|сети)` +
		`.*?(?:с\s+напряжением|напряжением)\s*` +
		`(~?\s*220\s*в\s+и\s+~?\s*380\s*в)`)

	voltageHighPower = regexp.MustCompile(`(?is)модели.*?начиная\s+с\s+12\s+квт` +
		`.*?(?:могут\s+работать|работать)` +
		`.*?(?:только\s+от\s+сети|от\s+сети)` +
		`.*?(?:мощностью|напряжением)\s*` +
		`(~?\s*380\s*в)`)

	voltageHighPowerImportant = regexp.MustCompile(`(?is)важно.*?модели.*?начиная\s+с\s+12\s+квт` +
		`.*?(?:могут\s+работать|работать)` +
		`.*?(?:только\s+от\s+сети|от\s+сети)` +
		`.*?(?:мощностью|напряжением)\s*` +
		`(~?\s*380\s*в)`)
)

const (
	voltageBoth     = "220В и 380В"
	voltageHighOnly = "380В"
)

// VoltageFromDescription reads the supply voltage from narrative description
// text. Only Vaillant eloBLOCK boilers state it this way, so any other name
// yields "". power gates which narrative applies: the 220/380 V sentence for
// 6 and 9 kW, the 380 V only sentence from 12 kW up. An unknown power accepts
// either.
func VoltageFromDescription(description, productName, power string) string {
	if description == "" || productName == "" {
		return ""
	}

	name := strings.ToLower(productName)
	if !strings.Contains(name, "vaillant") || !strings.Contains(name, "eloblock") {
		return ""
	}

	text := strings.Join(strings.Fields(description), " ")
	kw, known := parsePower(power)
	low := known && (kw == 6 || kw == 9)
	high := known && kw >= 12

	if m := voltageLowPower.FindStringSubmatch(text); m != nil {
		if v := cleanVoltage(m[1]); v != "" && (!known || low) {
			return v
		}
	}

	m := voltageHighPower.FindStringSubmatch(text)
	if m == nil {
		m = voltageHighPowerImportant.FindStringSubmatch(text)
	}
	if m != nil {
		if v := cleanVoltage(m[1]); v != "" && (!known || high) {
			return v
		}
	}

	lower := strings.ToLower(text)
	switch {
	case low:
		if strings.Contains(lower, "220") && strings.Contains(lower, "380") &&
			(strings.Contains(lower, "6") || strings.Contains(lower, "9")) &&
			strings.Contains(lower, "квт") {
			return voltageBoth
		}
	case high:
		if strings.Contains(lower, "380") &&
			(strings.Contains(lower, "только") || strings.Contains(lower, "начиная с 12")) {
			return voltageHighOnly
		}
	}

	return ""
}

func parsePower(power string) (float64, bool) {
	m := numericPattern.FindStringSubmatch(power)
	if m == nil {
		return 0, false
	}
	kw, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return kw, true
}

func cleanVoltage(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "~", "")), " ")
}
