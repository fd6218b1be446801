package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	vars := map[string]any{
		"deudor":  "Construcciones Páramo SL",
		"pasivo":  1250000.0,
		"dias":    75,
		"abierto": true,
		"nulo":    nil,
	}

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"string", "El deudor {deudor} está en concurso", "El deudor Construcciones Páramo SL está en concurso"},
		{"integral number without decimals", "pasivo de {pasivo} euros", "pasivo de 1250000 euros"},
		{"int", "{dias} días", "75 días"},
		{"bool", "abierto: {abierto}", "abierto: true"},
		{"absent placeholder", "importe {desconocido}", "importe [unavailable]"},
		{"null value", "fecha {nulo}", "fecha [unavailable]"},
		{"no placeholders", "texto plano", "texto plano"},
		{"repeated", "{dias} y {dias}", "75 y 75"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderTemplate(tc.template, vars))
		})
	}
}

func TestRenderTemplate_Idempotent(t *testing.T) {
	vars := map[string]any{"x": 3.14}
	tmpl := "valor {x}, faltante {y}"

	first := RenderTemplate(tmpl, vars)
	second := RenderTemplate(tmpl, vars)
	assert.Equal(t, first, second)
	assert.Equal(t, "valor 3.14, faltante [unavailable]", first)
}
