package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger, _ := zap.NewDevelopment()
	return &DB{DB: mockDB, logger: logger}, mock
}

var ruleColumns = []string{
	"id", "rule_name", "tool_name", "description", "risk_threshold", "risk_weight",
	"pattern_regex", "pattern_field", "policy_refs", "conditions", "priority", "enabled",
	"created_at", "updated_at",
}

func ruleRow(id uuid.UUID, name, toolName string, threshold float64, priority int) []driverValue {
	now := time.Now()
	return []driverValue{
		id, name, toolName, nil, threshold, 1.0,
		nil, nil, []byte("{POLICY-OVERSIGHT-002}"), []byte("{}"), priority, true,
		now, now,
	}
}

type driverValue = driver.Value

func TestRuleRepository_GetForTool_FiltersWithGoRecheck(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := zap.NewDevelopment()
	repo := NewRuleRepository(db, logger)

	exactID := uuid.New()
	wildcardID := uuid.New()
	likeOnlyID := uuid.New()

	rows := sqlmock.NewRows(ruleColumns).
		AddRow(ruleRow(exactID, "exact", "benefit_deny", 60, 10)...).
		AddRow(ruleRow(wildcardID, "wildcard", "benefit_%", 50, 20)...).
		// Matches SQL LIKE via the underscore wildcard but is not a % pattern,
		// so the Go re-check drops it.
		AddRow(ruleRow(likeOnlyID, "like-only", "benefit_den_", 40, 30)...)

	mock.ExpectQuery(regexp.QuoteMeta("FROM policy_rules")).
		WithArgs("benefit_deny").
		WillReturnRows(rows)

	rules, err := repo.GetForTool(context.Background(), "benefit_deny")

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "exact", rules[0].RuleName)
	assert.Equal(t, "wildcard", rules[1].RuleName)
	assert.Equal(t, []string{"POLICY-OVERSIGHT-002"}, rules[0].PolicyRefs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_GetForTool_NoRulesIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := zap.NewDevelopment()
	repo := NewRuleRepository(db, logger)

	mock.ExpectQuery(regexp.QuoteMeta("FROM policy_rules")).
		WithArgs("benefit_approve").
		WillReturnRows(sqlmock.NewRows(ruleColumns))

	rules, err := repo.GetForTool(context.Background(), "benefit_approve")

	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRuleRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := zap.NewDevelopment()
	repo := NewRuleRepository(db, logger)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM policy_rules")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(ruleColumns))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRuleRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := zap.NewDevelopment()
	repo := NewRuleRepository(db, logger)

	rule := models.NewPolicyRule("deny-oversight", "benefit_deny", 72, 1, 100)
	rule.Conditions = json.RawMessage(`{"decision_context.decision_type":"deny"}`)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO policy_rules")).
		WithArgs(rule.ID, rule.RuleName, rule.ToolName, nil, rule.RiskThreshold, rule.RiskWeight,
			nil, nil, sqlmock.AnyArg(), []byte(rule.Conditions), rule.Priority, rule.Enabled,
			rule.CreatedAt, rule.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), rule)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := zap.NewDevelopment()
	repo := NewRuleRepository(db, logger)

	rule := models.NewPolicyRule("gone", "benefit_deny", 50, 1, 10)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE policy_rules")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), rule)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRuleRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	logger, _ := zap.NewDevelopment()
	repo := NewRuleRepository(db, logger)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM policy_rules")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), id))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM policy_rules")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), shared.ErrNotFound)
}
