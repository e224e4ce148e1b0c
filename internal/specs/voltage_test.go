package specs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const eloblockDescription = `Котлы мощностью 6 кВт и 9 кВт могут работать от сети
с напряжением ~220 В и ~380 В. Модели, начиная с 12 кВт, могут работать
только от сети мощностью ~380 В.`

func TestVoltageFromDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		product     string
		power       string
		expected    string
	}{
		{"low power narrative", eloblockDescription, "Vaillant eloBLOCK VE 6", "6", "220 В и 380 В"},
		{"high power narrative", eloblockDescription, "Vaillant eloBLOCK VE 12", "12", "380 В"},
		{"unknown power takes first narrative", eloblockDescription, "Vaillant eloBLOCK VE", "", "220 В и 380 В"},
		{"range uses its lower bound", eloblockDescription, "Vaillant eloBLOCK VE 9", "9-14", "220 В и 380 В"},
		{
			"important prefix",
			"Важно!!! Модели, начиная с 12 кВт, могут работать только от сети мощностью ~380 В",
			"Vaillant eloBLOCK VE 18", "18", "380 В",
		},
		{"wrong brand", eloblockDescription, "Protherm Скат 6", "6", ""},
		{"model line required", eloblockDescription, "Vaillant ecoTEC", "6", ""},
		{
			"weak low power heuristic",
			"Работает от 220 и 380 В, мощность 6 кВт",
			"Vaillant eloBLOCK VE 6", "6", "220В и 380В",
		},
		{
			"weak high power heuristic",
			"Подключение только к 380 В",
			"Vaillant eloBLOCK VE 24", "24", "380В",
		},
		{
			"power outside narrative",
			"Модели, начиная с 12 кВт, могут работать только от сети мощностью ~380 В",
			"Vaillant eloBLOCK VE 9", "9", "",
		},
		{"empty description", "", "Vaillant eloBLOCK VE 6", "6", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VoltageFromDescription(tt.description, tt.product, tt.power))
		})
	}
}
