package policy

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/atlas-hitl/review-plane/models"
	"go.uber.org/zap"
)

// RuleSource provides the externally configured scoring rules for a tool.
// Implementations must return only enabled rules ordered by ascending
// priority, and must not treat "no rules" as an error; an unreachable store
// returns an error so the caller can take the heuristic fallback.
type RuleSource interface {
	GetForTool(ctx context.Context, toolName string) ([]*models.PolicyRule, error)
}

// matchRules filters rules down to those whose condition tree matches the
// evaluation context. A rule with no conditions applies unconditionally; a
// rule whose conditions cannot be parsed is skipped, not fatal.
func matchRules(rules []*models.PolicyRule, evalCtx map[string]any, logger *zap.Logger) []*models.PolicyRule {
	matched := make([]*models.PolicyRule, 0, len(rules))
	for _, rule := range rules {
		cond, err := ParseConditions(rule.Conditions)
		if err != nil {
			logger.Warn("skipping rule with unparseable conditions",
				zap.String("rule_name", rule.RuleName),
				zap.Error(err))
			continue
		}
		if cond.Matches(evalCtx) {
			matched = append(matched, rule)
		}
	}
	return matched
}

// matchPattern tests the rule's regex against the context value at its
// pattern field. Non-string values are matched against their JSON form.
// Any failure (bad regex, unmarshalable value) counts as no match for this
// rule only.
func matchPattern(rule *models.PolicyRule, evalCtx map[string]any, logger *zap.Logger) bool {
	if rule.PatternRegex == nil || *rule.PatternRegex == "" ||
		rule.PatternField == nil || *rule.PatternField == "" {
		return false
	}

	value := lookupPath(evalCtx, *rule.PatternField)
	if isFalsy(value) {
		return false
	}

	valueStr, ok := value.(string)
	if !ok {
		encoded, err := json.Marshal(value)
		if err != nil {
			logger.Error("failed to stringify pattern field value",
				zap.String("rule_name", rule.RuleName),
				zap.String("pattern_field", *rule.PatternField),
				zap.Error(err))
			return false
		}
		valueStr = string(encoded)
	}

	re, err := regexp.Compile("(?i)" + *rule.PatternRegex)
	if err != nil {
		logger.Error("invalid pattern regex",
			zap.String("rule_name", rule.RuleName),
			zap.Error(err))
		return false
	}

	return re.MatchString(valueStr)
}
