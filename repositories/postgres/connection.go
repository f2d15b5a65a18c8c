package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atlas-hitl/review-plane/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Users table
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			display_name VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Approval queue table
		CREATE TABLE IF NOT EXISTS approval_queue (
			id UUID PRIMARY KEY,
			user_display VARCHAR(255) NOT NULL,
			user_message TEXT NOT NULL,
			tool_name VARCHAR(255) NOT NULL,
			tool_args_redacted JSONB,
			risk_label VARCHAR(50) NOT NULL,
			risk_score INTEGER NOT NULL,
			risk_rationale TEXT NOT NULL,
			policy_refs TEXT[] NOT NULL DEFAULT '{}',
			status VARCHAR(50) NOT NULL,
			history JSONB NOT NULL DEFAULT '[]',
			reviewer_note TEXT,
			reviewed_by VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Policy rules table
		CREATE TABLE IF NOT EXISTS policy_rules (
			id UUID PRIMARY KEY,
			rule_name VARCHAR(255) NOT NULL UNIQUE,
			tool_name VARCHAR(255) NOT NULL,
			description TEXT,
			risk_threshold DOUBLE PRECISION NOT NULL,
			risk_weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			pattern_regex TEXT,
			pattern_field VARCHAR(255),
			policy_refs TEXT[] NOT NULL DEFAULT '{}',
			conditions JSONB NOT NULL DEFAULT '{}',
			priority INTEGER NOT NULL DEFAULT 0,
			enabled BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Audit events table
		CREATE TABLE IF NOT EXISTS audit_events (
			id UUID PRIMARY KEY,
			ts TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			actor VARCHAR(255) NOT NULL,
			action VARCHAR(100) NOT NULL,
			case_id UUID,
			detail TEXT
		);

		-- Action executions table
		CREATE TABLE IF NOT EXISTS action_executions (
			id UUID PRIMARY KEY,
			case_id UUID REFERENCES approval_queue(id) ON DELETE SET NULL,
			requested_by VARCHAR(255),
			approver VARCHAR(255),
			tool_name VARCHAR(255) NOT NULL,
			tool_args JSONB,
			decision_source VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL,
			response JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE INDEX IF NOT EXISTS idx_approval_queue_status ON approval_queue(status);
		CREATE INDEX IF NOT EXISTS idx_approval_queue_created_at ON approval_queue(created_at);
		CREATE INDEX IF NOT EXISTS idx_approval_queue_tool_name ON approval_queue(tool_name);

		CREATE INDEX IF NOT EXISTS idx_policy_rules_tool_name ON policy_rules(tool_name);
		CREATE INDEX IF NOT EXISTS idx_policy_rules_enabled ON policy_rules(enabled);
		CREATE INDEX IF NOT EXISTS idx_policy_rules_priority ON policy_rules(priority);

		CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts);
		CREATE INDEX IF NOT EXISTS idx_audit_events_case_id ON audit_events(case_id);
		CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events(action);

		CREATE INDEX IF NOT EXISTS idx_action_executions_case_id ON action_executions(case_id);
		CREATE INDEX IF NOT EXISTS idx_action_executions_created_at ON action_executions(created_at);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// InitAuditSchema initializes the audit database schema (audit_events only, no FK).
// Use for the separate audit database when DATABASE_URL_AUDIT is set.
func (db *DB) InitAuditSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id UUID PRIMARY KEY,
			ts TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			actor VARCHAR(255) NOT NULL,
			action VARCHAR(100) NOT NULL,
			case_id UUID,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts);
		CREATE INDEX IF NOT EXISTS idx_audit_events_case_id ON audit_events(case_id);
		CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events(action);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	db.logger.Info("audit schema initialized successfully")
	return nil
}
