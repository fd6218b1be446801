package rulebook

import "strings"

// Canonical (localized) severity and confidence level terms. Findings and
// aggregate results always report these terms; ladder keys written in
// English are normalized onto them at load and evaluation time.
const (
	SeverityCritical      = "critica"
	SeverityHigh          = "alta"
	SeverityMedium        = "media"
	SeverityLow           = "baja"
	SeverityIndeterminate = "indeterminada"

	ConfidenceHigh          = "alta"
	ConfidenceMedium        = "media"
	ConfidenceLow           = "baja"
	ConfidenceIndeterminate = "indeterminado"
)

// SeverityOrder lists severity levels highest first: ladder evaluation
// proceeds top-down and the first level whose expression holds wins.
var SeverityOrder = []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ConfidenceOrder lists confidence levels highest first.
var ConfidenceOrder = []string{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

var severityAliases = map[string]string{
	"critica":  SeverityCritical,
	"crítica":  SeverityCritical,
	"critical": SeverityCritical,
	"alta":     SeverityHigh,
	"high":     SeverityHigh,
	"media":    SeverityMedium,
	"medium":   SeverityMedium,
	"baja":     SeverityLow,
	"low":      SeverityLow,
}

var confidenceAliases = map[string]string{
	"alta":   ConfidenceHigh,
	"high":   ConfidenceHigh,
	"media":  ConfidenceMedium,
	"medium": ConfidenceMedium,
	"baja":   ConfidenceLow,
	"low":    ConfidenceLow,
}

// NormalizeSeverityLevel maps a ladder key onto the canonical severity
// term. Returns false for unknown levels.
func NormalizeSeverityLevel(key string) (string, bool) {
	level, ok := severityAliases[strings.ToLower(key)]
	return level, ok
}

// NormalizeConfidenceLevel maps a ladder key onto the canonical confidence
// term. Returns false for unknown levels.
func NormalizeConfidenceLevel(key string) (string, bool) {
	level, ok := confidenceAliases[strings.ToLower(key)]
	return level, ok
}
