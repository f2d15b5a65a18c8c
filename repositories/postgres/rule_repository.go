package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// RuleRepository implements the repositories.RuleRepository interface
type RuleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRuleRepository creates a new policy rule repository
func NewRuleRepository(db *DB, logger *zap.Logger) repositories.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *models.PolicyRule) error {
	query := `
		INSERT INTO policy_rules (id, rule_name, tool_name, description, risk_threshold, risk_weight,
			pattern_regex, pattern_field, policy_refs, conditions, priority, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		rule.ID,
		rule.RuleName,
		rule.ToolName,
		rule.Description,
		rule.RiskThreshold,
		rule.RiskWeight,
		rule.PatternRegex,
		rule.PatternField,
		pq.Array(rule.PolicyRefs),
		[]byte(rule.Conditions),
		rule.Priority,
		rule.Enabled,
		rule.CreatedAt,
		rule.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	r.logger.Debug("rule created",
		zap.String("id", rule.ID.String()),
		zap.String("rule_name", rule.RuleName))
	return nil
}

// GetByID retrieves a rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PolicyRule, error) {
	query := ruleSelectColumns + `
		FROM policy_rules
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	row := executor.QueryRowContext(ctx, query, id)

	rule, err := scanRule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("rule %s: %w", id, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// GetAll retrieves all enabled rules ordered by ascending priority
func (r *RuleRepository) GetAll(ctx context.Context) ([]*models.PolicyRule, error) {
	query := ruleSelectColumns + `
		FROM policy_rules
		WHERE enabled = true
		ORDER BY priority ASC, created_at ASC
	`

	return r.queryRules(ctx, query)
}

// GetForTool retrieves enabled rules applicable to a tool name.
// The SQL filter catches exact and LIKE-wildcard matches; MatchesTool
// re-checks in Go so anchoring is consistent with regex translation.
func (r *RuleRepository) GetForTool(ctx context.Context, toolName string) ([]*models.PolicyRule, error) {
	query := ruleSelectColumns + `
		FROM policy_rules
		WHERE enabled = true
			AND (tool_name = $1 OR $1 LIKE tool_name)
		ORDER BY priority ASC, created_at ASC
	`

	rules, err := r.queryRules(ctx, query, toolName)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.PolicyRule, 0, len(rules))
	for _, rule := range rules {
		if rule.MatchesTool(toolName) {
			matched = append(matched, rule)
		}
	}

	r.logger.Debug("rules fetched for tool",
		zap.String("tool_name", toolName),
		zap.Int("count", len(matched)))
	return matched, nil
}

// Update updates a rule
func (r *RuleRepository) Update(ctx context.Context, rule *models.PolicyRule) error {
	query := `
		UPDATE policy_rules
		SET rule_name = $2,
		    tool_name = $3,
		    description = $4,
		    risk_threshold = $5,
		    risk_weight = $6,
		    pattern_regex = $7,
		    pattern_field = $8,
		    policy_refs = $9,
		    conditions = $10,
		    priority = $11,
		    enabled = $12,
		    updated_at = $13
		WHERE id = $1
	`

	rule.UpdatedAt = time.Now()

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		rule.ID,
		rule.RuleName,
		rule.ToolName,
		rule.Description,
		rule.RiskThreshold,
		rule.RiskWeight,
		rule.PatternRegex,
		rule.PatternField,
		pq.Array(rule.PolicyRefs),
		[]byte(rule.Conditions),
		rule.Priority,
		rule.Enabled,
		rule.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, shared.ErrNotFound)
	}

	r.logger.Debug("rule updated", zap.String("id", rule.ID.String()))
	return nil
}

// Delete deletes a rule
func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM policy_rules WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("rule %s: %w", id, shared.ErrNotFound)
	}

	r.logger.Debug("rule deleted", zap.String("id", id.String()))
	return nil
}

const ruleSelectColumns = `
		SELECT id, rule_name, tool_name, description, risk_threshold, risk_weight,
			pattern_regex, pattern_field, policy_refs, conditions, priority, enabled,
			created_at, updated_at
`

func scanRule(row rowScanner) (*models.PolicyRule, error) {
	rule := &models.PolicyRule{}
	var conditions []byte

	err := row.Scan(
		&rule.ID,
		&rule.RuleName,
		&rule.ToolName,
		&rule.Description,
		&rule.RiskThreshold,
		&rule.RiskWeight,
		&rule.PatternRegex,
		&rule.PatternField,
		pq.Array(&rule.PolicyRefs),
		&conditions,
		&rule.Priority,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if conditions != nil {
		rule.Conditions = conditions
	}

	return rule, nil
}

// queryRules is a helper method to query multiple rules
func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]*models.PolicyRule, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.PolicyRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule rows: %w", err)
	}

	return rules, nil
}
