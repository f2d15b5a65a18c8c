package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CaseRepository implements the repositories.CaseRepository interface
type CaseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCaseRepository creates a new approval-queue repository
func NewCaseRepository(db *DB, logger *zap.Logger) repositories.CaseRepository {
	return &CaseRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new case
func (r *CaseRepository) Create(ctx context.Context, c *models.ReviewCase) error {
	query := `
		INSERT INTO approval_queue (id, user_display, user_message, tool_name, tool_args_redacted,
			risk_label, risk_score, risk_rationale, policy_refs, status, history,
			reviewer_note, reviewed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	history, err := json.Marshal(c.History)
	if err != nil {
		return fmt.Errorf("failed to encode case history: %w", err)
	}

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, query,
		c.ID,
		c.UserDisplay,
		c.UserMessage,
		c.ToolName,
		nullableJSON(c.ToolArgsRedacted),
		c.RiskLabel,
		c.RiskScore,
		c.RiskRationale,
		pq.Array(c.PolicyRefs),
		c.Status,
		history,
		c.ReviewerNote,
		c.ReviewedBy,
		c.CreatedAt,
		c.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	r.logger.Debug("case created",
		zap.String("id", c.ID.String()),
		zap.String("tool_name", c.ToolName),
		zap.String("risk_label", c.RiskLabel))
	return nil
}

// GetByID retrieves a case by ID
func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewCase, error) {
	query := caseSelectColumns + `
		FROM approval_queue
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	row := executor.QueryRowContext(ctx, query, id)

	c, err := scanCase(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("case %s: %w", id, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	return c, nil
}

// List retrieves cases newest first with pagination
func (r *CaseRepository) List(ctx context.Context, limit, offset int) ([]*models.ReviewCase, error) {
	query := caseSelectColumns + `
		FROM approval_queue
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryCases(ctx, query, limit, offset)
}

// ListByStatus retrieves cases in one of the given statuses, newest first
func (r *CaseRepository) ListByStatus(ctx context.Context, statuses []models.CaseStatus, limit, offset int) ([]*models.ReviewCase, error) {
	query := caseSelectColumns + `
		FROM approval_queue
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryCases(ctx, query, pq.Array(statusStrings(statuses)), limit, offset)
}

// ListStale retrieves cases in the given statuses created before the cutoff
func (r *CaseRepository) ListStale(ctx context.Context, statuses []models.CaseStatus, cutoff time.Time) ([]*models.ReviewCase, error) {
	query := caseSelectColumns + `
		FROM approval_queue
		WHERE status = ANY($1) AND created_at < $2
		ORDER BY created_at ASC
	`

	return r.queryCases(ctx, query, pq.Array(statusStrings(statuses)), cutoff)
}

// Update updates a case's status, history and reviewer fields
func (r *CaseRepository) Update(ctx context.Context, c *models.ReviewCase) error {
	query := `
		UPDATE approval_queue
		SET status = $2,
		    history = $3,
		    reviewer_note = $4,
		    reviewed_by = $5,
		    updated_at = $6
		WHERE id = $1
	`

	history, err := json.Marshal(c.History)
	if err != nil {
		return fmt.Errorf("failed to encode case history: %w", err)
	}

	c.UpdatedAt = time.Now()

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		c.ID,
		c.Status,
		history,
		c.ReviewerNote,
		c.ReviewedBy,
		c.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("case %s: %w", c.ID, shared.ErrNotFound)
	}

	r.logger.Debug("case updated",
		zap.String("id", c.ID.String()),
		zap.String("status", string(c.Status)))
	return nil
}

const caseSelectColumns = `
		SELECT id, user_display, user_message, tool_name, tool_args_redacted,
			risk_label, risk_score, risk_rationale, policy_refs, status, history,
			reviewer_note, reviewed_by, created_at, updated_at
`

// rowScanner abstracts *sql.Row and *sql.Rows for scanCase
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (*models.ReviewCase, error) {
	c := &models.ReviewCase{}
	var toolArgs []byte
	var history []byte

	err := row.Scan(
		&c.ID,
		&c.UserDisplay,
		&c.UserMessage,
		&c.ToolName,
		&toolArgs,
		&c.RiskLabel,
		&c.RiskScore,
		&c.RiskRationale,
		pq.Array(&c.PolicyRefs),
		&c.Status,
		&history,
		&c.ReviewerNote,
		&c.ReviewedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if toolArgs != nil {
		c.ToolArgsRedacted = json.RawMessage(toolArgs)
	}
	if history != nil {
		if err := json.Unmarshal(history, &c.History); err != nil {
			return nil, fmt.Errorf("failed to decode case history: %w", err)
		}
	}

	return c, nil
}

// queryCases is a helper method to query multiple cases
func (r *CaseRepository) queryCases(ctx context.Context, query string, args ...interface{}) ([]*models.ReviewCase, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.ReviewCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case rows: %w", err)
	}

	return cases, nil
}

func statusStrings(statuses []models.CaseStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// nullableJSON maps an empty RawMessage to NULL so JSONB columns stay clean
func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
