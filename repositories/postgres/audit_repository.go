package postgres

import (
	"context"
	"fmt"

	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface.
// It may be backed by the main database or a dedicated audit database.
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit trail repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit event
func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, ts, actor, action, case_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		event.Actor,
		event.Action,
		event.CaseID,
		event.Detail,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// List retrieves audit events newest first with pagination
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, ts, actor, action, case_id, detail
		FROM audit_events
		ORDER BY ts DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryEvents(ctx, query, limit, offset)
}

// ListByCase retrieves audit events for a case, newest first
func (r *AuditRepository) ListByCase(ctx context.Context, caseID uuid.UUID, limit, offset int) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, ts, actor, action, case_id, detail
		FROM audit_events
		WHERE case_id = $1
		ORDER BY ts DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryEvents(ctx, query, caseID, limit, offset)
}

// queryEvents is a helper method to query multiple audit events
func (r *AuditRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.AuditEvent, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event := &models.AuditEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Actor,
			&event.Action,
			&event.CaseID,
			&event.Detail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit event rows: %w", err)
	}

	return events, nil
}
