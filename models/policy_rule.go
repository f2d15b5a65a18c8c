package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PolicyRule is an externally configured weighted scoring rule.
// Rules are matched against an evaluation context by tool name and by their
// stored condition tree; matched rules contribute to the aggregate risk score.
type PolicyRule struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	RuleName      string          `json:"rule_name" db:"rule_name"`
	ToolName      string          `json:"tool_name" db:"tool_name"` // may contain SQL-style % wildcard
	Description   *string         `json:"description,omitempty" db:"description"`
	RiskThreshold float64         `json:"risk_threshold" db:"risk_threshold"`
	RiskWeight    float64         `json:"risk_weight" db:"risk_weight"`
	PatternRegex  *string         `json:"pattern_regex,omitempty" db:"pattern_regex"`
	PatternField  *string         `json:"pattern_field,omitempty" db:"pattern_field"` // dot path into the evaluation context
	PolicyRefs    []string        `json:"policy_refs" db:"policy_refs"`
	Conditions    json.RawMessage `json:"conditions" db:"conditions"` // JSONB condition tree
	Priority      int             `json:"priority" db:"priority"`
	Enabled       bool            `json:"enabled" db:"enabled"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the PolicyRule model
func (PolicyRule) TableName() string {
	return "policy_rules"
}

// NewPolicyRule creates an enabled rule with generated ID and timestamps
func NewPolicyRule(ruleName, toolName string, riskThreshold, riskWeight float64, priority int) *PolicyRule {
	now := time.Now()
	return &PolicyRule{
		ID:            uuid.New(),
		RuleName:      ruleName,
		ToolName:      toolName,
		RiskThreshold: riskThreshold,
		RiskWeight:    riskWeight,
		PolicyRefs:    []string{},
		Conditions:    json.RawMessage("{}"),
		Priority:      priority,
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MatchesTool reports whether the rule applies to the given tool name.
// An exact match always applies; a tool_name containing % is treated as a
// SQL-style wildcard pattern (anchored, % translated to .*).
func (r *PolicyRule) MatchesTool(toolName string) bool {
	if r.ToolName == toolName {
		return true
	}
	if !strings.Contains(r.ToolName, "%") {
		return false
	}
	pattern := "^" + strings.ReplaceAll(r.ToolName, "%", ".*") + "$"
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(toolName)
}
