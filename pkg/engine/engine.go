// Package engine orchestrates deterministic rule evaluation: it runs every
// rule's trigger against a read-only case variable environment, resolves
// severity and confidence through escalation ladders, verifies every cited
// article against the allow-list extracted from retrieved legal text, and
// emits immutable risk findings.
//
// Evaluation is pure computation: no I/O, no model calls, no shared mutable
// state. A fresh Engine per evaluation call is cheap and makes concurrent
// case evaluations trivially safe.
package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/citations"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/exprlang"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/rulebook"
)

// Version identifies the evaluation semantics, recorded in every result.
const Version = "1.2.0"

// State is the terminal state of one rule's evaluation.
type State string

const (
	// StateNotEvaluable: a trigger variable was absent from the case
	// environment. The rule gets no verdict at all.
	StateNotEvaluable State = "NOT_EVALUABLE"
	// StateDiscarded: the trigger did not evaluate to boolean true.
	StateDiscarded State = "DISCARDED"
	// StateTriggered: the rule applies and produced a finding.
	StateTriggered State = "TRIGGERED"
	// StateErrored: an internal fault was caught at the rule boundary.
	// Counted with discarded rules for aggregates, logged distinctly.
	StateErrored State = "ERRORED"
)

// Evidence status values carried on findings.
const (
	EvidenceSufficient   = "suficiente"
	EvidenceInsufficient = "insuficiente"
	EvidenceMissing      = "falta"
)

// LegalRisk is one finding. Created only here; immutable after creation.
// Downstream consumers (explainer, persistence, reporting) read it as-is
// and may never alter severity, confidence or the cited articles.
type LegalRisk struct {
	RuleID         string   `json:"rule_id"`
	RiskType       string   `json:"risk_type"`
	Description    string   `json:"description"`
	Severity       string   `json:"severity"`
	Confidence     string   `json:"confidence"`
	LegalArticles  []string `json:"legal_articles"`
	Jurisprudence  []string `json:"jurisprudence"`
	EvidenceStatus string   `json:"evidence_status"`
	Recommendation string   `json:"recommendation"`
	MissingData    []string `json:"missing_data,omitempty"`
}

// RuleOutcome records the terminal state of one rule for partitioning.
type RuleOutcome struct {
	RuleID string `json:"rule_id"`
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// Evaluation is the raw product of one engine pass, consumed by the result
// builder.
type Evaluation struct {
	Outcomes []RuleOutcome
	Risks    []LegalRisk
}

// Engine evaluates one rulebook. It holds no session-scoped mutable fields.
type Engine struct {
	rulebook *rulebook.Rulebook
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger used for per-rule diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an engine over an immutable rulebook. The rulebook is passed
// explicitly into every engine rather than held as module state.
func New(rb *rulebook.Rulebook, opts ...Option) *Engine {
	e := &Engine{rulebook: rb, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateRules runs every rule against the case environment and returns
// the findings of the triggered ones.
func (e *Engine) EvaluateRules(caseVars map[string]any, legalContext string) []LegalRisk {
	return e.Evaluate(caseVars, legalContext).Risks
}

// Evaluate runs the full pass and also reports per-rule terminal states.
func (e *Engine) Evaluate(caseVars map[string]any, legalContext string) *Evaluation {
	allowed := citations.ExtractAllowedArticles(legalContext)

	ev := &Evaluation{}
	for _, rule := range e.rulebook.Rules {
		outcome, risk := e.evaluateRule(rule, caseVars, allowed)
		ev.Outcomes = append(ev.Outcomes, outcome)
		if risk != nil {
			ev.Risks = append(ev.Risks, *risk)
		}
	}
	return ev
}

// evaluateRule applies the per-rule algorithm inside a local failure
// boundary: whatever goes wrong here affects this rule only, never the
// rest of the batch.
func (e *Engine) evaluateRule(rule rulebook.Rule, caseVars map[string]any, allowed map[string]struct{}) (outcome RuleOutcome, risk *LegalRisk) {
	defer func() {
		if r := recover(); r != nil {
			outcome = RuleOutcome{RuleID: rule.RuleID, State: StateErrored, Reason: fmt.Sprintf("internal fault: %v", r)}
			risk = nil
			e.logger.Error("rule evaluation failed, skipping rule", "rule_id", rule.RuleID, "reason", outcome.Reason)
		}
	}()

	// 1. Every required variable must be present, else the rule gets no
	// verdict: absence of a fact is insufficient data, not falsity.
	for _, name := range rule.Trigger.VariablesRequired {
		if _, ok := caseVars[name]; !ok {
			e.logger.Debug("rule not evaluable, missing variable", "rule_id", rule.RuleID, "variable", name)
			return RuleOutcome{RuleID: rule.RuleID, State: StateNotEvaluable, Reason: fmt.Sprintf("missing variable %q", name)}, nil
		}
	}

	// 2. Only an exact boolean true triggers the rule.
	res := exprlang.Evaluate(rule.Trigger.Condition, caseVars)
	if res == nil || !*res {
		e.logger.Debug("rule discarded, trigger not satisfied", "rule_id", rule.RuleID)
		return RuleOutcome{RuleID: rule.RuleID, State: StateDiscarded, Reason: "trigger did not evaluate to true"}, nil
	}

	// 3. Escalation ladders, highest level first, first true wins.
	severity := resolveLadder(rule.SeverityLogic, rulebook.SeverityOrder, rulebook.NormalizeSeverityLevel, rulebook.SeverityIndeterminate, caseVars)
	confidence := resolveLadder(rule.ConfidenceLogic, rulebook.ConfidenceOrder, rulebook.NormalizeConfidenceLevel, rulebook.ConfidenceIndeterminate, caseVars)

	// 4. Cited articles must be verifiable against the retrieved legal
	// text. A rule may never report high confidence while citing an
	// unverifiable article.
	valid, discarded := citations.FilterLegalArticles(rule.ArticleRefs, allowed, e.logger)
	if len(discarded) > 0 {
		confidence = rulebook.ConfidenceIndeterminate
	}

	// 5. Evidence status.
	evidenceStatus := EvidenceSufficient
	switch {
	case len(rule.ArticleRefs) > 0 && len(valid) == 0:
		evidenceStatus = EvidenceMissing
	case len(discarded) > 0 || confidence == rulebook.ConfidenceIndeterminate:
		evidenceStatus = EvidenceInsufficient
	}

	// 6. Render output templates against the case environment.
	var missing []string
	if rule.Outputs.MissingDataTemplate != "" && evidenceStatus != EvidenceSufficient {
		missing = append(missing, RenderTemplate(rule.Outputs.MissingDataTemplate, caseVars))
	}
	if len(discarded) > 0 {
		missing = append(missing, fmt.Sprintf("citas no verificables en el contexto legal: %s", strings.Join(discarded, ", ")))
	}

	risk = &LegalRisk{
		RuleID:         rule.RuleID,
		RiskType:       rule.RiskType,
		Description:    RenderTemplate(rule.Outputs.DescriptionTemplate, caseVars),
		Severity:       severity,
		Confidence:     confidence,
		LegalArticles:  nonNil(valid),
		Jurisprudence:  nonNil(rule.Jurisprudence),
		EvidenceStatus: evidenceStatus,
		Recommendation: RenderTemplate(rule.Outputs.RecommendationTemplate, caseVars),
		MissingData:    missing,
	}
	e.logger.Debug("rule triggered", "rule_id", rule.RuleID, "severity", severity, "confidence", confidence)
	return RuleOutcome{RuleID: rule.RuleID, State: StateTriggered}, risk
}

// resolveLadder walks the ladder top-down and returns the first level whose
// expression evaluates to boolean true. Levels without an expression are
// not claimable. When none match, the indeterminate default applies (never
// an empty level).
//
// Two aliases naming the same level with different expressions make that
// level ambiguous; the loader rejects such ladders, and a ladder built
// around the loader gets the level treated as unclaimable rather than an
// arbitrary pick between the expressions.
func resolveLadder(ladder rulebook.Ladder, order []string, normalize func(string) (string, bool), def string, caseVars map[string]any) string {
	byLevel := make(map[string]string, len(ladder))
	ambiguous := make(map[string]bool)
	for key, expr := range ladder {
		level, ok := normalize(key)
		if !ok {
			continue
		}
		if prev, dup := byLevel[level]; dup && prev != expr {
			ambiguous[level] = true
			continue
		}
		byLevel[level] = expr
	}
	for _, level := range order {
		expr := byLevel[level]
		if expr == "" || ambiguous[level] {
			continue
		}
		if res := exprlang.Evaluate(expr, caseVars); res != nil && *res {
			return level
		}
	}
	return def
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
