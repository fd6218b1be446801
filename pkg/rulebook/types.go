// Package rulebook defines the declarative rule model of the insolvency
// analysis engine and loads versioned rule collections from YAML or JSON
// sources. A loaded Rulebook is an immutable value: it is validated once,
// passed explicitly into every evaluation call, and never mutated.
package rulebook

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/canonicalize"
)

// Trigger is the boolean condition determining whether a rule applies to a
// case. Every identifier the condition reads must be declared in
// VariablesRequired; the loader enforces this.
type Trigger struct {
	Condition         string   `json:"condition" yaml:"condition"`
	VariablesRequired []string `json:"variables_required" yaml:"variables_required"`
}

// EvidenceRequired is advisory metadata describing what documentation
// supports the rule. It is carried into findings but never evaluated.
type EvidenceRequired struct {
	DocumentTypes []string `json:"document_types" yaml:"document_types"`
	Descriptions  []string `json:"descriptions" yaml:"descriptions"`
}

// Outputs holds the text templates a triggered rule renders against the
// case environment. Placeholders use {variable} syntax; an unresolvable
// placeholder renders as [unavailable].
type Outputs struct {
	DescriptionTemplate    string `json:"description_template" yaml:"description_template"`
	RecommendationTemplate string `json:"recommendation_template" yaml:"recommendation_template"`
	MissingDataTemplate    string `json:"missing_data_template,omitempty" yaml:"missing_data_template,omitempty"`
}

// Ladder maps a discrete severity or confidence level to the expression
// that claims it. Levels are evaluated highest first; the first expression
// evaluating to boolean true wins. Keys may use the Spanish terms used in
// outputs (critica, alta, media, baja) or their English equivalents.
type Ladder map[string]string

// Rule is one codified insolvency risk. Immutable once loaded.
type Rule struct {
	RuleID           string           `json:"rule_id" yaml:"rule_id"`
	RiskType         string           `json:"risk_type" yaml:"risk_type"`
	ArticleRefs      []string         `json:"article_refs" yaml:"article_refs"`
	Jurisprudence    []string         `json:"jurisprudence,omitempty" yaml:"jurisprudence,omitempty"`
	Trigger          Trigger          `json:"trigger" yaml:"trigger"`
	EvidenceRequired EvidenceRequired `json:"evidence_required" yaml:"evidence_required"`
	SeverityLogic    Ladder           `json:"severity_logic" yaml:"severity_logic"`
	ConfidenceLogic  Ladder           `json:"confidence_logic" yaml:"confidence_logic"`
	Outputs          Outputs          `json:"outputs" yaml:"outputs"`
}

// Metadata identifies a rulebook revision. Version must be semver: result
// records and cache keys are derived from it.
type Metadata struct {
	Name         string `json:"name" yaml:"name"`
	Version      string `json:"version" yaml:"version"`
	Jurisdiction string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Rulebook is a versioned collection of rules, loaded once per evaluation
// session and treated as read-only thereafter.
type Rulebook struct {
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	Rules    []Rule   `json:"rules" yaml:"rules"`
}

// Hash returns the canonical content hash of the rulebook, suitable as the
// rulebook component of a result cache key.
func (rb *Rulebook) Hash() (string, error) {
	return canonicalize.CanonicalHash(rb)
}

// ValidationError reports every structural violation found in a rulebook
// source. Loading fails closed: a source with missing required fields is
// rejected outright, never silently defaulted.
type ValidationError struct {
	Paths []string
}

func (e *ValidationError) Error() string {
	sorted := make([]string, len(e.Paths))
	copy(sorted, e.Paths)
	sort.Strings(sorted)
	return fmt.Sprintf("rulebook validation failed: %s", strings.Join(sorted, "; "))
}
