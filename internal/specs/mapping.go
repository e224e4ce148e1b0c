package specs

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/maltedev/boiler-scraper/internal/models"
)

type labelRule struct {
	label     string
	key       models.AttrKey
	exactOnly bool
}

// labelRules maps specification labels to attribute keys. Bare DHW labels
// only match exactly; a longer label such as "ГВС (вода)" carries its own
// water qualifier.
var labelRules = sortedRules([]labelRule{
	{label: "Максимальная тепловая мощность", key: models.AttrPower},
	{label: "Максимальная мощность", key: models.AttrPower},
	{label: "Мощность", key: models.AttrPower},
	{label: "Мощность, кВт", key: models.AttrPower},
	{label: "Мощность (кВт)", key: models.AttrPower},
	{label: "Регулировка мощности", key: models.AttrPowerRegulation},
	{label: "Регулировка", key: models.AttrPowerRegulation},
	{label: "Площадь отопления", key: models.AttrHeatingArea},
	{label: "Площадь отопления, рекомендуемая до", key: models.AttrHeatingArea},
	{label: "Площадь отопления (м²)", key: models.AttrHeatingArea},
	{label: "Начальный вариант работы", key: models.AttrWorkType},
	{label: "Режим работы", key: models.AttrWorkType},
	{label: "Возможность для работы самостоятельно", key: models.AttrSelfWork},
	{label: "Автономная работа", key: models.AttrSelfWork},
	{label: "Возможность для нагрева воды", key: models.AttrWaterHeating},
	{label: "Нагрев воды", key: models.AttrWaterHeating},
	{label: "ГВС (вода)", key: models.AttrWaterHeating},
	{label: "ГВС", key: models.AttrWaterHeating, exactOnly: true},
	{label: "DHW (water)", key: models.AttrWaterHeating},
	{label: "DHW", key: models.AttrWaterHeating, exactOnly: true},
	{label: "Возможность нагрева теплого пола", key: models.AttrFloorHeating},
	{label: "Теплый пол", key: models.AttrFloorHeating},
	{label: "Расширительный бак", key: models.AttrExpansionTank},
	{label: "Объем расширительного бака", key: models.AttrExpansionTank},
	{label: "Expansion tank volume", key: models.AttrExpansionTank},
	{label: "Циркуляционный насос", key: models.AttrCirculationPump},
	{label: "Насос", key: models.AttrCirculationPump},
	{label: "Питание от сети", key: models.AttrVoltage},
	{label: "Питание от сети, Вольт", key: models.AttrVoltage},
	{label: "Напряжение", key: models.AttrVoltage},
	{label: "Напряжение (В)", key: models.AttrVoltage},
	{label: "Кабель подключения", key: models.AttrCable},
	{label: "Кабель", key: models.AttrCable},
	{label: "Предохранитель", key: models.AttrFuse},
	{label: "Предохранитель, А", key: models.AttrFuse},
	{label: "Предохранитель (А)", key: models.AttrFuse},
	{label: "Диапазон выбираемых температур", key: models.AttrTempRange},
	{label: "Диапазон температур", key: models.AttrTempRange},
	{label: "Температура радиаторного отопления", key: models.AttrTempRangeRadiator},
	{label: "Температура теплого пола", key: models.AttrTempRangeFloor},
	{label: "Подключение к системе", key: models.AttrConnection},
	{label: "Подключение", key: models.AttrConnection},
	{label: "Габаритные размеры", key: models.AttrDimensions},
	{label: "Размеры", key: models.AttrDimensions},
	{label: "Размеры (мм)", key: models.AttrDimensions},
	{label: "WiFi", key: models.AttrWifi},
	{label: "Возможность подключения WiFi", key: models.AttrWifi},
	{label: "Wi-Fi", key: models.AttrWifi},
	{label: "Возможность подключения комнатного термостата", key: models.AttrThermostat},
	{label: "Комнатный термостат", key: models.AttrThermostat},
	{label: "Комнатный термостат в комплекте", key: models.AttrThermostatIncluded},
	{label: "Термостат в комплекте", key: models.AttrThermostatIncluded},
	{label: "Возможно подключение датчика уличной температуры", key: models.AttrOutdoorSensor},
	{label: "Датчик уличной температуры", key: models.AttrOutdoorSensor},
})

// sortedRules lowercases labels and orders them longest first. Ties keep
// table order.
func sortedRules(rules []labelRule) []labelRule {
	for i := range rules {
		rules[i].label = strings.ToLower(rules[i].label)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return utf8.RuneCountInString(rules[i].label) > utf8.RuneCountInString(rules[j].label)
	})
	return rules
}

// MatchLabel resolves a specification label to an attribute key. An exact
// match anywhere in the table beats any substring match.
func MatchLabel(label string) (models.AttrKey, bool) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return "", false
	}

	if isWaterHeatingLabel(lower) {
		return models.AttrWaterHeating, true
	}

	for _, rule := range labelRules {
		if rule.label == lower {
			return rule.key, true
		}
	}

	for _, rule := range labelRules {
		if !rule.exactOnly && strings.Contains(lower, rule.label) {
			return rule.key, true
		}
	}

	return "", false
}

func isWaterHeatingLabel(lower string) bool {
	if !strings.Contains(lower, "гвс") && !strings.Contains(lower, "dhw") {
		return false
	}
	return strings.Contains(lower, "вода") ||
		strings.Contains(lower, "water") ||
		lower == "гвс" ||
		lower == "dhw"
}

// redirectTempRange moves a generic temperature range to the radiator or
// floor variant when the label says which circuit it is.
func redirectTempRange(lower string) models.AttrKey {
	switch {
	case strings.Contains(lower, "радиатор"):
		return models.AttrTempRangeRadiator
	case strings.Contains(lower, "пол"), strings.Contains(lower, "теплый"):
		return models.AttrTempRangeFloor
	default:
		return models.AttrTempRange
	}
}
