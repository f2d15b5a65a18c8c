package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActionExecutionRepository implements the repositories.ActionExecutionRepository interface
type ActionExecutionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewActionExecutionRepository creates a new action execution repository
func NewActionExecutionRepository(db *DB, logger *zap.Logger) repositories.ActionExecutionRepository {
	return &ActionExecutionRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists an execution record
func (r *ActionExecutionRepository) Create(ctx context.Context, exec *models.ActionExecution) error {
	query := `
		INSERT INTO action_executions (id, case_id, requested_by, approver, tool_name, tool_args,
			decision_source, status, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		exec.ID,
		exec.CaseID,
		exec.RequestedBy,
		exec.Approver,
		exec.ToolName,
		nullableJSON(exec.ToolArgs),
		exec.DecisionSource,
		exec.Status,
		nullableJSON(exec.Response),
		exec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create action execution: %w", err)
	}

	r.logger.Debug("action execution recorded",
		zap.String("id", exec.ID.String()),
		zap.String("tool_name", exec.ToolName),
		zap.String("decision_source", string(exec.DecisionSource)))
	return nil
}

// GetByID retrieves an execution record by ID
func (r *ActionExecutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionExecution, error) {
	query := `
		SELECT id, case_id, requested_by, approver, tool_name, tool_args,
			decision_source, status, response, created_at
		FROM action_executions
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	row := executor.QueryRowContext(ctx, query, id)

	exec, err := scanExecution(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("action execution %s: %w", id, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get action execution: %w", err)
	}

	return exec, nil
}

// ListByCase retrieves execution records for a case
func (r *ActionExecutionRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ActionExecution, error) {
	query := `
		SELECT id, case_id, requested_by, approver, tool_name, tool_args,
			decision_source, status, response, created_at
		FROM action_executions
		WHERE case_id = $1
		ORDER BY created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action executions: %w", err)
	}
	defer rows.Close()

	var execs []*models.ActionExecution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action execution: %w", err)
		}
		execs = append(execs, exec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action execution rows: %w", err)
	}

	return execs, nil
}

func scanExecution(row rowScanner) (*models.ActionExecution, error) {
	exec := &models.ActionExecution{}
	var toolArgs, response []byte

	err := row.Scan(
		&exec.ID,
		&exec.CaseID,
		&exec.RequestedBy,
		&exec.Approver,
		&exec.ToolName,
		&toolArgs,
		&exec.DecisionSource,
		&exec.Status,
		&response,
		&exec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if toolArgs != nil {
		exec.ToolArgs = json.RawMessage(toolArgs)
	}
	if response != nil {
		exec.Response = json.RawMessage(response)
	}

	return exec, nil
}
