// Package result assembles risk findings into the immutable, hashable
// RuleEngineResult consumed downstream. Ordering inside a result is stable
// (sorted) and the canonical hash is derived from the sorted, serialized
// content, so two independent evaluations of the same inputs are
// bit-for-bit comparable and replayable.
package result

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/canonicalize"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/engine"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/rulebook"
)

// RuleEngineResult is the engine's aggregate product. Built once via
// Builder, never mutated afterwards.
type RuleEngineResult struct {
	ResultID          string             `json:"result_id"`
	CaseID            string             `json:"case_id"`
	EngineVersion     string             `json:"engine_version"`
	RulebookVersion   string             `json:"rulebook_version"`
	EvaluatedRules    []string           `json:"evaluated_rules"`
	TriggeredRules    []string           `json:"triggered_rules"`
	DiscardedRules    []string           `json:"discarded_rules"`
	Risks             []engine.LegalRisk `json:"risks"`
	LegalArticles     []string           `json:"legal_articles"`
	OverallConfidence string             `json:"overall_confidence"`
	Conclusion        string             `json:"conclusion"`
	SummaryFlags      map[string]bool    `json:"summary_flags"`
	EvaluatedAt       time.Time          `json:"evaluated_at"`
	Hash              string             `json:"hash"`
}

// hashableResult is the canonical subset the hash is computed over.
// ResultID and EvaluatedAt identify the run, not the decision content:
// including either would break replay equality across processes and time.
type hashableResult struct {
	CaseID            string             `json:"case_id"`
	EngineVersion     string             `json:"engine_version"`
	RulebookVersion   string             `json:"rulebook_version"`
	EvaluatedRules    []string           `json:"evaluated_rules"`
	TriggeredRules    []string           `json:"triggered_rules"`
	DiscardedRules    []string           `json:"discarded_rules"`
	Risks             []engine.LegalRisk `json:"risks"`
	LegalArticles     []string           `json:"legal_articles"`
	OverallConfidence string             `json:"overall_confidence"`
	Conclusion        string             `json:"conclusion"`
	SummaryFlags      map[string]bool    `json:"summary_flags"`
}

// Builder assembles one result. Build may be called exactly once.
type Builder struct {
	caseID          string
	rulebookVersion string
	evaluation      *engine.Evaluation
	clock           func() time.Time
	built           bool
}

// NewBuilder creates a result builder for one case evaluation.
func NewBuilder(caseID string) *Builder {
	return &Builder{caseID: caseID, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithRulebook records the rulebook revision the evaluation ran against.
func (b *Builder) WithRulebook(rb *rulebook.Rulebook) *Builder {
	b.rulebookVersion = rb.Metadata.Version
	return b
}

// WithEvaluation attaches the engine's raw evaluation pass.
func (b *Builder) WithEvaluation(ev *engine.Evaluation) *Builder {
	b.evaluation = ev
	return b
}

// Build assembles the immutable result. A second call is an error: results
// are built once and never mutated.
func (b *Builder) Build() (*RuleEngineResult, error) {
	if b.built {
		return nil, fmt.Errorf("result: already built")
	}
	if b.evaluation == nil {
		return nil, fmt.Errorf("result: no evaluation attached")
	}
	b.built = true

	triggered, discarded, errored := partition(b.evaluation.Outcomes)
	risks := sortedRisks(b.evaluation.Risks)
	articles := articleUnion(risks)
	overall := overallConfidence(risks)

	res := &RuleEngineResult{
		ResultID:          uuid.New().String(),
		CaseID:            b.caseID,
		EngineVersion:     engine.Version,
		RulebookVersion:   b.rulebookVersion,
		EvaluatedRules:    sortedUnion(triggered, discarded),
		TriggeredRules:    triggered,
		DiscardedRules:    discarded,
		Risks:             risks,
		LegalArticles:     articles,
		OverallConfidence: overall,
		Conclusion:        conclusion(risks, articles),
		SummaryFlags: map[string]bool{
			"risks_detected":        len(risks) > 0,
			"rules_errored":         errored > 0,
			"citations_discarded":   anyCitationDiscarded(risks),
			"insufficient_evidence": anyInsufficientEvidence(risks),
		},
		EvaluatedAt: b.clock().UTC(),
	}

	hash, err := canonicalHashOf(res)
	if err != nil {
		return nil, fmt.Errorf("result: hash failed: %w", err)
	}
	res.Hash = hash
	return res, nil
}

func hashContent(h hashableResult) (string, error) {
	return canonicalize.CanonicalHash(h)
}

// partition splits outcomes into triggered and discarded rule identifiers.
// Errored rules count with the discarded ones for aggregate purposes; rules
// that were not evaluable get no verdict and appear in neither list.
func partition(outcomes []engine.RuleOutcome) (triggered, discarded []string, errored int) {
	triggered, discarded = []string{}, []string{}
	for _, o := range outcomes {
		switch o.State {
		case engine.StateTriggered:
			triggered = append(triggered, o.RuleID)
		case engine.StateDiscarded:
			discarded = append(discarded, o.RuleID)
		case engine.StateErrored:
			discarded = append(discarded, o.RuleID)
			errored++
		}
	}
	sort.Strings(triggered)
	sort.Strings(discarded)
	return triggered, discarded, errored
}

func sortedUnion(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Strings(out)
	return out
}

func sortedRisks(risks []engine.LegalRisk) []engine.LegalRisk {
	out := make([]engine.LegalRisk, len(risks))
	copy(out, risks)
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}

// articleUnion collects the distinct cited articles across findings,
// ordered with embedded numbers compared numerically so "Art. 5" precedes
// "Art. 165" both in the field and in the conclusion text.
func articleUnion(risks []engine.LegalRisk) []string {
	seen := make(map[string]bool)
	union := []string{}
	for _, r := range risks {
		for _, a := range r.LegalArticles {
			if !seen[a] {
				seen[a] = true
				union = append(union, a)
			}
		}
	}
	sort.Slice(union, func(i, j int) bool {
		// Zero-padded variants compare equal numerically; break the tie
		// byte-wise so the order stays total.
		if c := naturalCompare(union[i], union[j]); c != 0 {
			return c < 0
		}
		return union[i] < union[j]
	})
	return union
}

// naturalCompare orders strings byte-wise except that runs of digits
// compare as whole numbers.
func naturalCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ei, ej := i, j
			for ei < len(a) && isDigit(a[ei]) {
				ei++
			}
			for ej < len(b) && isDigit(b[ej]) {
				ej++
			}
			na := strings.TrimLeft(a[i:ei], "0")
			nb := strings.TrimLeft(b[j:ej], "0")
			if len(na) != len(nb) {
				return len(na) - len(nb)
			}
			if na != nb {
				return strings.Compare(na, nb)
			}
			i, j = ei, ej
			continue
		}
		if a[i] != b[j] {
			return int(a[i]) - int(b[j])
		}
		i++
		j++
	}
	return (len(a) - i) - (len(b) - j)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// overallConfidence is the weakest link across findings: any indeterminate
// finding forces the aggregate down; otherwise a critical or high severity
// escalates toward media, and baja remains for minor findings. Zero risks
// is a confident outcome in itself.
func overallConfidence(risks []engine.LegalRisk) string {
	if len(risks) == 0 {
		return rulebook.ConfidenceHigh
	}
	elevated := false
	for _, r := range risks {
		if r.Confidence == rulebook.ConfidenceIndeterminate {
			return rulebook.ConfidenceIndeterminate
		}
		if r.Severity == rulebook.SeverityCritical || r.Severity == rulebook.SeverityHigh {
			elevated = true
		}
	}
	if elevated {
		return rulebook.ConfidenceMedium
	}
	return rulebook.ConfidenceLow
}

// anyCitationDiscarded reports whether any finding carries the
// discarded-citation missing-data entry the engine records when cited
// articles could not be verified against the retrieved legal context.
func anyCitationDiscarded(risks []engine.LegalRisk) bool {
	for _, r := range risks {
		for _, m := range r.MissingData {
			if strings.HasPrefix(m, "citas no verificables en el contexto legal:") {
				return true
			}
		}
	}
	return false
}

// anyInsufficientEvidence reports whether any finding rests on less than
// sufficient evidence.
func anyInsufficientEvidence(risks []engine.LegalRisk) bool {
	for _, r := range risks {
		if r.EvidenceStatus != engine.EvidenceSufficient {
			return true
		}
	}
	return false
}

// conclusion composes the one-paragraph aggregate conclusion, naming the
// risk count and up to five representative articles.
func conclusion(risks []engine.LegalRisk, articles []string) string {
	if len(risks) == 0 {
		return "No se han detectado riesgos concursales en el caso analizado: " +
			"ninguna regla del catálogo resultó de aplicación con los hechos disponibles."
	}
	verb, noun := "Se han detectado", fmt.Sprintf("%d riesgos concursales", len(risks))
	if len(risks) == 1 {
		verb, noun = "Se ha detectado", "1 riesgo concursal"
	}
	representative := articles
	if len(representative) > 5 {
		representative = representative[:5]
	}
	if len(representative) == 0 {
		return fmt.Sprintf("%s %s; ninguna cita legal pudo "+
			"verificarse contra el contexto recuperado.", verb, noun)
	}
	return fmt.Sprintf("%s %s con fundamento en %s.",
		verb, noun, strings.Join(representative, ", "))
}
