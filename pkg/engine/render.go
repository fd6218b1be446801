package engine

import (
	"regexp"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/exprlang"
)

// Unavailable is the literal substituted for a placeholder whose variable
// is absent or null. Rendering never fails.
const Unavailable = "[unavailable]"

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RenderTemplate resolves {variable} placeholders against the case
// environment. Rendering is idempotent: the same template and environment
// always yield identical text.
func RenderTemplate(template string, caseVars map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		raw, ok := caseVars[name]
		if !ok || raw == nil {
			return Unavailable
		}
		v, err := exprlang.FromAny(raw)
		if err != nil {
			return Unavailable
		}
		return v.String()
	})
}
