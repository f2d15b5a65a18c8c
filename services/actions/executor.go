package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecutionStatus values recorded on action_executions rows
const (
	StatusExecuted = "EXECUTED"
	StatusFailed   = "FAILED"
)

// TargetSystem is the downstream benefit system an approved action is sent to.
// The production integration is not wired yet; StubTarget stands in for it.
type TargetSystem interface {
	Execute(ctx context.Context, toolName string, args json.RawMessage) (json.RawMessage, error)
}

// StubTarget simulates the target benefit system. It accepts every call and
// returns a canned acknowledgement payload.
type StubTarget struct{}

// Execute returns a simulated acknowledgement for the requested action
func (StubTarget) Execute(_ context.Context, toolName string, _ json.RawMessage) (json.RawMessage, error) {
	ack := map[string]any{
		"status":      "ok",
		"simulated":   true,
		"tool_name":   toolName,
		"executed_at": time.Now().UTC().Format(time.RFC3339),
	}
	encoded, err := json.Marshal(ack)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

// Executor dispatches approved actions to the target system and records
// every attempt in the action_executions table.
type Executor struct {
	target   TargetSystem
	execRepo repositories.ActionExecutionRepository
	logger   *zap.Logger
}

// NewExecutor creates an action executor. A nil target selects the stub.
func NewExecutor(target TargetSystem, execRepo repositories.ActionExecutionRepository, logger *zap.Logger) *Executor {
	if target == nil {
		target = StubTarget{}
	}
	return &Executor{
		target:   target,
		execRepo: execRepo,
		logger:   logger,
	}
}

// ExecuteRequest describes an action dispatch
type ExecuteRequest struct {
	CaseID         *uuid.UUID
	RequestedBy    *string
	Approver       *string
	ToolName       string
	ToolArgs       json.RawMessage
	DecisionSource models.DecisionSource
}

// Execute dispatches the action and persists the execution record.
// The record is written even when the target call fails, so every attempt
// is accounted for.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) (*models.ActionExecution, error) {
	exec := &models.ActionExecution{
		ID:             uuid.New(),
		CaseID:         req.CaseID,
		RequestedBy:    req.RequestedBy,
		Approver:       req.Approver,
		ToolName:       req.ToolName,
		ToolArgs:       req.ToolArgs,
		DecisionSource: req.DecisionSource,
		Status:         StatusExecuted,
		CreatedAt:      time.Now(),
	}

	response, execErr := e.target.Execute(ctx, req.ToolName, req.ToolArgs)
	if execErr != nil {
		exec.Status = StatusFailed
		e.logger.Error("target system call failed",
			zap.String("tool_name", req.ToolName),
			zap.Error(execErr))
	} else {
		exec.Response = response
	}

	if err := e.execRepo.Create(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to record action execution: %w", err)
	}

	e.logger.Info("action executed",
		zap.String("id", exec.ID.String()),
		zap.String("tool_name", exec.ToolName),
		zap.String("status", exec.Status),
		zap.String("decision_source", string(exec.DecisionSource)))

	if execErr != nil {
		return exec, fmt.Errorf("target system call failed: %w", execErr)
	}
	return exec, nil
}

// GetByID retrieves an execution record
func (e *Executor) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionExecution, error) {
	return e.execRepo.GetByID(ctx, id)
}

// ListByCase retrieves execution records for a case
func (e *Executor) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.ActionExecution, error) {
	return e.execRepo.ListByCase(ctx, caseID)
}
