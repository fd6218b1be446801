package result

import "fmt"

// Verify recomputes the canonical hash over the result's decision content
// and compares it with the recorded hash. It is the replay check: a stored
// result whose content was altered after build, or re-serialized lossily,
// no longer verifies.
func Verify(res *RuleEngineResult) (bool, error) {
	if res.Hash == "" {
		return false, fmt.Errorf("result: no hash recorded")
	}
	recomputed, err := canonicalHashOf(res)
	if err != nil {
		return false, err
	}
	return recomputed == res.Hash, nil
}

func canonicalHashOf(res *RuleEngineResult) (string, error) {
	return hashContent(hashableResult{
		CaseID:            res.CaseID,
		EngineVersion:     res.EngineVersion,
		RulebookVersion:   res.RulebookVersion,
		EvaluatedRules:    res.EvaluatedRules,
		TriggeredRules:    res.TriggeredRules,
		DiscardedRules:    res.DiscardedRules,
		Risks:             res.Risks,
		LegalArticles:     res.LegalArticles,
		OverallConfidence: res.OverallConfidence,
		Conclusion:        res.Conclusion,
		SummaryFlags:      res.SummaryFlags,
	})
}
