package result

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/engine"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/rulebook"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func risk(ruleID, severity, confidence string, articles ...string) engine.LegalRisk {
	if articles == nil {
		articles = []string{}
	}
	return engine.LegalRisk{
		RuleID:         ruleID,
		RiskType:       "riesgo_" + ruleID,
		Description:    "descripción",
		Severity:       severity,
		Confidence:     confidence,
		LegalArticles:  articles,
		Jurisprudence:  []string{},
		EvidenceStatus: engine.EvidenceSufficient,
		Recommendation: "recomendación",
	}
}

func evaluationFor(risks ...engine.LegalRisk) *engine.Evaluation {
	ev := &engine.Evaluation{}
	for _, r := range risks {
		ev.Risks = append(ev.Risks, r)
		ev.Outcomes = append(ev.Outcomes, engine.RuleOutcome{RuleID: r.RuleID, State: engine.StateTriggered})
	}
	return ev
}

func TestBuild_NoRisksIsConfidentOutcome(t *testing.T) {
	res, err := NewBuilder("caso-1").
		WithClock(fixedClock).
		WithEvaluation(&engine.Evaluation{}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, rulebook.ConfidenceHigh, res.OverallConfidence)
	assert.Contains(t, res.Conclusion, "No se han detectado riesgos")
	assert.False(t, res.SummaryFlags["risks_detected"])
	assert.Empty(t, res.Risks)
	assert.NotEmpty(t, res.Hash)
}

// Scenario E: severities alta and baja escalate the aggregate to media,
// unless any individual risk is indeterminate.
func TestBuild_OverallConfidenceEscalation(t *testing.T) {
	res, err := NewBuilder("caso-2").
		WithClock(fixedClock).
		WithEvaluation(evaluationFor(
			risk("R-1", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 5"),
			risk("R-2", rulebook.SeverityLow, rulebook.ConfidenceMedium, "Art. 2"),
		)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, rulebook.ConfidenceMedium, res.OverallConfidence)

	res2, err := NewBuilder("caso-2").
		WithClock(fixedClock).
		WithEvaluation(evaluationFor(
			risk("R-1", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 5"),
			risk("R-2", rulebook.SeverityLow, rulebook.ConfidenceIndeterminate),
		)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, rulebook.ConfidenceIndeterminate, res2.OverallConfidence)
}

func TestBuild_OnlyMinorFindingsStaysLow(t *testing.T) {
	res, err := NewBuilder("caso-3").
		WithClock(fixedClock).
		WithEvaluation(evaluationFor(
			risk("R-1", rulebook.SeverityLow, rulebook.ConfidenceMedium, "Art. 2"),
		)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, rulebook.ConfidenceLow, res.OverallConfidence)
	assert.Contains(t, res.Conclusion, "1 riesgo concursal")
	assert.Contains(t, res.Conclusion, "Art. 2")
}

func TestBuild_PartitionAndOrdering(t *testing.T) {
	ev := &engine.Evaluation{
		Outcomes: []engine.RuleOutcome{
			{RuleID: "R-3", State: engine.StateTriggered},
			{RuleID: "R-1", State: engine.StateDiscarded},
			{RuleID: "R-4", State: engine.StateNotEvaluable},
			{RuleID: "R-2", State: engine.StateErrored, Reason: "internal fault"},
		},
		Risks: []engine.LegalRisk{risk("R-3", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 5")},
	}

	res, err := NewBuilder("caso-4").WithClock(fixedClock).WithEvaluation(ev).Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"R-3"}, res.TriggeredRules)
	// Errored rules are counted with the discarded; not-evaluable rules
	// appear nowhere.
	assert.Equal(t, []string{"R-1", "R-2"}, res.DiscardedRules)
	assert.Equal(t, []string{"R-1", "R-2", "R-3"}, res.EvaluatedRules)
	assert.Len(t, res.EvaluatedRules, len(res.TriggeredRules)+len(res.DiscardedRules))
	assert.True(t, res.SummaryFlags["rules_errored"])
}

func TestBuild_ArticleUnionCapsConclusionAtFive(t *testing.T) {
	res, err := NewBuilder("caso-5").
		WithClock(fixedClock).
		WithEvaluation(evaluationFor(
			risk("R-1", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 1", "Art. 2", "Art. 3"),
			risk("R-2", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 3", "Art. 4", "Art. 5", "Art. 6", "Art. 7"),
		)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"Art. 1", "Art. 2", "Art. 3", "Art. 4", "Art. 5", "Art. 6", "Art. 7"}, res.LegalArticles)
	assert.Contains(t, res.Conclusion, "Art. 5")
	assert.NotContains(t, res.Conclusion, "Art. 6")
}

// Article ordering compares the embedded numbers numerically, so the
// conclusion reads "Art. 5, Art. 28, Art. 165" rather than the
// lexicographic "Art. 165, Art. 28, Art. 5".
func TestBuild_ArticleUnionOrdersNumerically(t *testing.T) {
	res, err := NewBuilder("caso-orden").
		WithClock(fixedClock).
		WithEvaluation(evaluationFor(
			risk("R-1", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 165", "Art. 5"),
			risk("R-2", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 28", "Art. 2.4"),
		)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"Art. 2.4", "Art. 5", "Art. 28", "Art. 165"}, res.LegalArticles)
	assert.Contains(t, res.Conclusion, "Art. 2.4, Art. 5, Art. 28, Art. 165")
}

func TestBuild_DeterministicHash(t *testing.T) {
	build := func(clock func() time.Time) *RuleEngineResult {
		res, err := NewBuilder("caso-6").
			WithClock(clock).
			WithRulebook(&rulebook.Rulebook{Metadata: rulebook.Metadata{Version: "1.3.0"}}).
			WithEvaluation(evaluationFor(
				risk("R-1", rulebook.SeverityHigh, rulebook.ConfidenceHigh, "Art. 5"),
			)).
			Build()
		require.NoError(t, err)
		return res
	}

	first := build(fixedClock)
	// The wall clock identifies the run, not the decision content: a later
	// re-evaluation of identical inputs must hash identically.
	second := build(func() time.Time { return fixedClock().Add(48 * time.Hour) })

	assert.Equal(t, first.Hash, second.Hash)
	assert.NotEqual(t, first.ResultID, second.ResultID)
}

func TestBuild_HashCoversDecisionContent(t *testing.T) {
	base := func(conf string) *RuleEngineResult {
		res, err := NewBuilder("caso-7").
			WithClock(fixedClock).
			WithEvaluation(evaluationFor(risk("R-1", rulebook.SeverityHigh, conf, "Art. 5"))).
			Build()
		require.NoError(t, err)
		return res
	}

	assert.NotEqual(t, base(rulebook.ConfidenceHigh).Hash, base(rulebook.ConfidenceMedium).Hash)
}

func TestBuild_BuildOnce(t *testing.T) {
	b := NewBuilder("caso-8").WithClock(fixedClock).WithEvaluation(&engine.Evaluation{})
	_, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	assert.ErrorContains(t, err, "already built")
}

func TestBuild_RequiresEvaluation(t *testing.T) {
	_, err := NewBuilder("caso-9").Build()
	assert.Error(t, err)
}

func TestResult_SerializesWithStableShape(t *testing.T) {
	res, err := NewBuilder("caso-10").
		WithClock(fixedClock).
		WithEvaluation(&engine.Evaluation{}).
		Build()
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	// Empty partitions serialize as [], not null: downstream consumers
	// iterate these without nil checks.
	assert.Contains(t, string(raw), `"evaluated_rules":[]`)
	assert.Contains(t, string(raw), `"legal_articles":[]`)
}
