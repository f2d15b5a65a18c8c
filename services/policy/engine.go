package policy

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// defaultRuleFetchTimeout bounds the single external read the engine makes.
// A timed-out fetch is handled exactly like an unreachable store.
const defaultRuleFetchTimeout = 3 * time.Second

// Engine evaluates benefit decisions against the heuristic classifier and
// the externally configured rule store. It holds no mutable state; each
// Evaluate call is independent and safe to run concurrently.
type Engine struct {
	rules   RuleSource
	timeout time.Duration
	logger  *zap.Logger
}

// NewEngine creates a policy engine. A zero ruleFetchTimeout selects the
// default.
func NewEngine(rules RuleSource, ruleFetchTimeout time.Duration, logger *zap.Logger) *Engine {
	if ruleFetchTimeout <= 0 {
		ruleFetchTimeout = defaultRuleFetchTimeout
	}
	return &Engine{
		rules:   rules,
		timeout: ruleFetchTimeout,
		logger:  logger,
	}
}

// Evaluate scores a pre-validated PolicyInput and returns a complete
// decision. A rule-store failure never surfaces as an error; the engine
// degrades to the fixed heuristic fallback and the returned error is nil
// for any valid input.
func (e *Engine) Evaluate(ctx context.Context, in *PolicyInput) (*PolicyDecision, error) {
	ev := deriveEvidence(in)
	label := classify(&ev)

	toolName := "benefit_" + in.DecisionContext.DecisionType

	result := ScoreResult{
		Score:      defaultScore,
		Rationale:  routineRationale,
		PolicyRefs: []string{"POLICY-LOW-RISK-001"},
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rules, err := e.rules.GetForTool(fetchCtx, toolName)
	if err != nil {
		e.logger.Error("rule store unavailable, falling back to heuristic score",
			zap.String("tool_name", toolName),
			zap.String("risk_label", string(label)),
			zap.Error(err))
		result = fallbackScore(label, ev.harmSignalPresent, ev.fraudConfirmed())
	} else {
		evalCtx, buildErr := buildEvalContext(in, &ev)
		if buildErr != nil {
			e.logger.Error("failed to build evaluation context, falling back to heuristic score",
				zap.Error(buildErr))
			result = fallbackScore(label, ev.harmSignalPresent, ev.fraudConfirmed())
		} else if matched := matchRules(rules, evalCtx, e.logger); len(matched) > 0 {
			result = computeAggregateRiskScore(matched, evalCtx, e.logger)
			e.logger.Debug("computed aggregate risk score",
				zap.String("tool_name", toolName),
				zap.Int("matched_rules", len(matched)),
				zap.Int("risk_score", result.Score))
		}
	}

	return &PolicyDecision{
		Decision:          DecisionForLabel(label),
		RiskLabel:         label,
		RiskScore:         result.Score,
		RiskRationale:     result.Rationale,
		PolicyRefs:        result.PolicyRefs,
		HarmRightsSignals: harmRightsSignals(&ev),
		Labels: Labels{
			Label:             label,
			RecommendedAction: recommendedAction(label, &ev),
			PolicyRationale:   policyRationale(label),
		},
	}, nil
}

// buildEvalContext flattens the input into the generic map that rule
// conditions and pattern fields resolve dot paths against. Normalized
// convenience fields (docs_quality, idv_status, ability_to_engage) are
// exposed at the top level alongside the raw sub-objects so rules can
// target either form.
func buildEvalContext(in *PolicyInput, ev *evidence) (map[string]any, error) {
	fraud := in.StructuredInputs.FraudSignals
	if fraud == nil {
		fraud = &FraudSignals{}
	}
	docs := in.StructuredInputs.DocsStatus
	if docs == nil {
		docs = &DocsStatus{}
	}

	view := struct {
		DecisionContext         DecisionContext    `json:"decision_context"`
		StructuredInputs        StructuredInputs   `json:"structured_inputs"`
		HarmSignalPresent       string             `json:"harm_signal_present"`
		AppealOrReviewRequested string             `json:"appeal_or_review_requested,omitempty"`
		AbilityToEngage         string             `json:"ability_to_engage"`
		FraudSignals            FraudSignals       `json:"fraud_signals"`
		DocsStatus              DocsStatus         `json:"docs_status"`
		DocsQuality             string             `json:"docs_quality"`
		IDVStatus               string             `json:"idv_status"`
	}{
		DecisionContext:         in.DecisionContext,
		StructuredInputs:        in.StructuredInputs,
		HarmSignalPresent:       ev.harmSignalPresent,
		AppealOrReviewRequested: in.AppealOrReviewRequested,
		AbilityToEngage:         ev.abilityToEngage,
		FraudSignals:            *fraud,
		DocsStatus:              *docs,
		DocsQuality:             ev.docsQuality,
		IDVStatus:               ev.idvStatus,
	}

	encoded, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}

	var ctx map[string]any
	if err := json.Unmarshal(encoded, &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}
