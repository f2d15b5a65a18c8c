package repositories

import (
	"context"
	"time"

	"github.com/atlas-hitl/review-plane/models"
	"github.com/google/uuid"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// CaseRepository handles approval-queue case data operations
type CaseRepository interface {
	// Create persists a new case
	Create(ctx context.Context, c *models.ReviewCase) error

	// GetByID retrieves a case by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewCase, error)

	// List retrieves cases newest first with pagination
	List(ctx context.Context, limit, offset int) ([]*models.ReviewCase, error)

	// ListByStatus retrieves cases in one of the given statuses, newest first
	ListByStatus(ctx context.Context, statuses []models.CaseStatus, limit, offset int) ([]*models.ReviewCase, error)

	// ListStale retrieves cases in the given statuses created before the cutoff
	ListStale(ctx context.Context, statuses []models.CaseStatus, cutoff time.Time) ([]*models.ReviewCase, error)

	// Update updates a case's status, history and reviewer fields
	Update(ctx context.Context, c *models.ReviewCase) error
}

// RuleRepository handles policy rule data operations.
// GetForTool must return only enabled rules ordered by ascending priority,
// must honor SQL-style % wildcards in tool_name, and must treat an empty
// result as success, not an error.
type RuleRepository interface {
	// Create persists a new rule
	Create(ctx context.Context, rule *models.PolicyRule) error

	// GetByID retrieves a rule by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.PolicyRule, error)

	// GetAll retrieves all enabled rules ordered by ascending priority
	GetAll(ctx context.Context) ([]*models.PolicyRule, error)

	// GetForTool retrieves enabled rules applicable to a tool name
	GetForTool(ctx context.Context, toolName string) ([]*models.PolicyRule, error)

	// Update updates a rule
	Update(ctx context.Context, rule *models.PolicyRule) error

	// Delete deletes a rule
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditRepository handles audit trail data operations
type AuditRepository interface {
	// Insert inserts a new audit event
	Insert(ctx context.Context, event *models.AuditEvent) error

	// List retrieves audit events newest first with pagination
	List(ctx context.Context, limit, offset int) ([]*models.AuditEvent, error)

	// ListByCase retrieves audit events for a case, newest first
	ListByCase(ctx context.Context, caseID uuid.UUID, limit, offset int) ([]*models.AuditEvent, error)
}

// UserRepository handles reviewer/requester account operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ActionExecutionRepository records calls to the target benefit system
type ActionExecutionRepository interface {
	// Create persists an execution record
	Create(ctx context.Context, exec *models.ActionExecution) error

	// GetByID retrieves an execution record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.ActionExecution, error)

	// ListByCase retrieves execution records for a case
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ActionExecution, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Cases      CaseRepository
	Rules      RuleRepository
	AuditLog   AuditRepository
	Users      UserRepository
	Executions ActionExecutionRepository
}
