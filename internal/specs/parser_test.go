package specs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/boiler-scraper/internal/brands"
	"github.com/maltedev/boiler-scraper/internal/models"
)

func newTestParser() *Parser {
	return NewParser(brands.DefaultPowerBrands())
}

func TestParsePowerPriority(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name     string
		raw      string
		product  string
		expected models.Attributes
	}{
		{
			name:    "maximum power then regulation",
			raw:     "Максимальная тепловая мощность: 6-12 кВт\nРегулировка мощности: 3 кВт\n",
			product: "Vaillant eloBLOCK VE 12",
			expected: models.Attributes{
				models.AttrPower:           "6-12",
				models.AttrPowerRegulation: "3",
			},
		},
		{
			name:    "regulation before maximum power",
			raw:     "Регулировка мощности: 3 кВт\nМаксимальная тепловая мощность: 6-12 кВт",
			product: "Vaillant eloBLOCK VE 12",
			expected: models.Attributes{
				models.AttrPower:           "6-12",
				models.AttrPowerRegulation: "3",
			},
		},
		{
			name:    "regulation only",
			raw:     "Регулировка мощности: 2-4 кВт",
			product: "PROTHERM СКАТ 4K",
			expected: models.Attributes{
				models.AttrPower:           "2-4",
				models.AttrPowerRegulation: "2-4",
			},
		},
		{
			name:     "plain power fallback",
			raw:      "Мощность, кВт: 9,5\nМощность насоса: 80 Вт",
			product:  "TEKNIX ESPRO 9",
			expected: models.Attributes{models.AttrPower: "9,5"},
		},
		{
			name:     "other brand uses generic mapping",
			raw:      "Мощность: 6 кВт",
			product:  "Kospel EKCO 6",
			expected: models.Attributes{models.AttrPower: "6"},
		},
		{
			name:     "value without number keeps text",
			raw:      "Максимальная тепловая мощность: по запросу",
			product:  "TECLine 12",
			expected: models.Attributes{models.AttrPower: "по запросу"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Parse(tt.raw, tt.product))
		})
	}
}

func TestExtractPowerIgnoresOtherBrands(t *testing.T) {
	p := newTestParser()

	assert.Empty(t, p.ExtractPower("Максимальная тепловая мощность: 6 кВт", "Kospel EKCO"))
	assert.Equal(t, models.Attributes{models.AttrPower: "6"},
		p.ExtractPower("Максимальная тепловая мощность: 6 кВт", "vaillant"))
}

func TestParseLabelMapping(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		line  string
		key   models.AttrKey
		value string
	}{
		{"exact voltage", "Напряжение: 220 В", models.AttrVoltage, "220 В"},
		{"longer alias wins", "Комнатный термостат в комплекте (да): да", models.AttrThermostatIncluded, "да"},
		{"expansion tank volume", "Expansion tank volume: 6 l", models.AttrExpansionTank, "6 l"},
		{"tank volume with unit", "Объем расширительного бака (л): 7  л", models.AttrExpansionTank, "7 л"},
		{"radiator range", "Диапазон температур радиаторов: 30-85 °C", models.AttrTempRangeRadiator, "30-85 °C"},
		{"floor range", "Диапазон температур теплого пола: 25-55 °C", models.AttrTempRangeFloor, "25-55 °C"},
		{"generic range", "Диапазон выбираемых температур: 30-85 °C", models.AttrTempRange, "30-85 °C"},
		{"case insensitive", "ГАБАРИТНЫЕ РАЗМЕРЫ: 410x740x310", models.AttrDimensions, "410x740x310"},
		{"trailing colon trimmed", "Кабель: 5x6 мм²:", models.AttrCable, "5x6 мм²"},
		{"decomposed text", "Тепл\u044b\u0438\u0306 пол: да", models.AttrFloorHeating, "да"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := p.Parse(tt.line, "Kospel EKCO")
			assert.Equal(t, models.Attributes{tt.key: tt.value}, attrs)
		})
	}
}

func TestParseWaterHeating(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name     string
		line     string
		expected string
		present  bool
	}{
		{"flow rate", "ГВС: 12.5 л/мин", "12.5", true},
		{"external tank", "ГВС: в выносном баке", ExternalTank, true},
		{"external tank synonym", "DHW (water): external tank 10 l/min", ExternalTank, true},
		{"placeholder", "ГВС: Ø", "", false},
		{"dash", "ГВС: —", "", false},
		{"unit only", "ГВС: л/мин", "", false},
		{"unqualified dhw label ignored", "ГВС производительность: 10 л/мин", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := p.Parse(tt.line, "")
			v, ok := attrs.Get(models.AttrWaterHeating)
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseSuppressesTankPlaceholder(t *testing.T) {
	p := newTestParser()

	for _, v := range []string{"Ø", "∅", "-", "—", "none", "no", "Нет", ""} {
		attrs := p.Parse("Расширительный бак: "+v, "Kospel")
		_, ok := attrs.Get(models.AttrExpansionTank)
		assert.False(t, ok, "value %q", v)
	}
}

func TestParseEmpty(t *testing.T) {
	p := newTestParser()

	assert.Empty(t, p.Parse("", "Vaillant eloBLOCK"))
	assert.Empty(t, p.Parse("без двоеточия\nещё строка", "Vaillant eloBLOCK"))
	assert.Empty(t, p.Parse("Неизвестный параметр: 5", "Vaillant eloBLOCK"))
}

func TestMatchLabel(t *testing.T) {
	key, ok := MatchLabel("Регулировка мощности")
	assert.True(t, ok)
	assert.Equal(t, models.AttrPowerRegulation, key)

	key, ok = MatchLabel("DHW")
	assert.True(t, ok)
	assert.Equal(t, models.AttrWaterHeating, key)

	_, ok = MatchLabel("  ")
	assert.False(t, ok)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "6 кВт", NormalizeValue("  6 кВт  :"))
	assert.Equal(t, "220 В", NormalizeValue("220  В"))
	assert.Equal(t, "", NormalizeValue(""))
}
