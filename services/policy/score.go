package policy

import (
	"fmt"
	"math"
	"strings"

	"github.com/atlas-hitl/review-plane/models"
	"go.uber.org/zap"
)

// maxRiskScore caps the computed score below 100 so that the top of the
// scale stays reserved for manual override
const maxRiskScore = 98

// defaultScore is the score assigned when nothing specific applies
const defaultScore = 20

const (
	routineRationale  = "Routine case with verified evidence and no harm/rights indicators."
	escalateRationale = "Human oversight required due to harm/rights risk or incomplete/contradictory evidence."
	blockRationale    = "Confirmed ineligibility or verified fraud with no harm/rights flags."
)

// ScoreResult is the outcome of aggregate or fallback scoring
type ScoreResult struct {
	Score      int
	Rationale  string
	PolicyRefs []string
}

// computeAggregateRiskScore combines matched rules into a weighted-average
// score. Each rule contributes its threshold, plus a 5-point bonus when its
// pattern matches, weighted by risk_weight (default 1.0). The result is
// clamped to maxRiskScore. Policy refs are deduplicated in first-seen order.
func computeAggregateRiskScore(matched []*models.PolicyRule, evalCtx map[string]any, logger *zap.Logger) ScoreResult {
	if len(matched) == 0 {
		return ScoreResult{
			Score:      defaultScore,
			Rationale:  "No specific rules matched. Default low-risk score.",
			PolicyRefs: []string{"POLICY-LOW-RISK-001"},
		}
	}

	var totalWeightedScore, totalWeight float64
	refs := make([]string, 0, len(matched))
	seenRefs := make(map[string]struct{})
	ruleNames := make([]string, 0, len(matched))

	for _, rule := range matched {
		weight := rule.RiskWeight
		if weight == 0 {
			weight = 1.0
		}

		patternBonus := 0.0
		if matchPattern(rule, evalCtx, logger) {
			patternBonus = 5
			ruleNames = append(ruleNames, rule.RuleName+"(+pattern)")
		} else {
			ruleNames = append(ruleNames, rule.RuleName)
		}

		totalWeightedScore += (rule.RiskThreshold + patternBonus) * weight
		totalWeight += weight

		for _, ref := range rule.PolicyRefs {
			if _, seen := seenRefs[ref]; !seen {
				seenRefs[ref] = struct{}{}
				refs = append(refs, ref)
			}
		}
	}

	score := int(math.Round(math.Min(maxRiskScore, totalWeightedScore/totalWeight)))

	return ScoreResult{
		Score: score,
		Rationale: fmt.Sprintf("Risk computed from %d rule(s): %s. Weighted score: %d.",
			len(matched), strings.Join(ruleNames, ", "), score),
		PolicyRefs: refs,
	}
}

// fallbackScore produces the fixed heuristic-derived score used when the
// rule store is unreachable. The engine must keep producing an explainable
// decision rather than fail, so this path is first-class.
func fallbackScore(label RiskLabel, harmSignalPresent string, fraudConfirmed bool) ScoreResult {
	switch label {
	case LabelBlock:
		score := 90
		if fraudConfirmed {
			score += 6
		}
		if score > maxRiskScore {
			score = maxRiskScore
		}
		return ScoreResult{
			Score:      score,
			Rationale:  blockRationale,
			PolicyRefs: []string{"POLICY-INELIGIBLE-004", "POLICY-FRAUD-005"},
		}
	case LabelEscalate:
		score := 70
		switch harmSignalPresent {
		case "strong":
			score += 10
		case "moderate":
			score += 6
		case "weak":
			score += 3
		}
		return ScoreResult{
			Score:      score,
			Rationale:  escalateRationale,
			PolicyRefs: []string{"POLICY-HARM-RIGHTS-001", "POLICY-OVERSIGHT-002"},
		}
	default:
		return ScoreResult{
			Score:      defaultScore,
			Rationale:  routineRationale,
			PolicyRefs: []string{"POLICY-LOW-RISK-001"},
		}
	}
}

// policyRationale is the fixed explanation attached to the labels block
func policyRationale(label RiskLabel) string {
	switch label {
	case LabelBlock:
		return blockRationale
	case LabelEscalate:
		return escalateRationale
	default:
		return routineRationale
	}
}
