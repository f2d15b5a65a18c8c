package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/atlas-hitl/review-plane/services/actions"
	"github.com/atlas-hitl/review-plane/services/audit"
	"github.com/atlas-hitl/review-plane/services/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service drives the review queue: it runs intake requests through the
// policy engine, queues anything that is not auto-approved, and applies
// reviewer verdicts.
type Service struct {
	engine    *policy.Engine
	caseRepo  repositories.CaseRepository
	txManager repositories.TransactionManager
	auditSvc  *audit.Service
	executor  *actions.Executor
	logger    *zap.Logger
}

// NewService creates a case service
func NewService(
	engine *policy.Engine,
	caseRepo repositories.CaseRepository,
	txManager repositories.TransactionManager,
	auditSvc *audit.Service,
	executor *actions.Executor,
	logger *zap.Logger,
) *Service {
	return &Service{
		engine:    engine,
		caseRepo:  caseRepo,
		txManager: txManager,
		auditSvc:  auditSvc,
		executor:  executor,
		logger:    logger,
	}
}

// IntakeRequest is a proposed benefit action submitted for evaluation
type IntakeRequest struct {
	UserDisplay string
	UserMessage string
	Input       *policy.PolicyInput
	ToolArgs    json.RawMessage // redacted args echoed onto the queued case
}

// IntakeResult is the outcome of evaluating an intake request
type IntakeResult struct {
	Decision  *policy.PolicyDecision `json:"decision"`
	Case      *models.ReviewCase     `json:"case,omitempty"`
	Execution *models.ActionExecution `json:"execution,omitempty"`
}

// Intake evaluates a proposed action. ALLOW decisions are executed against
// the target system immediately; everything else is queued for review.
func (s *Service) Intake(ctx context.Context, req IntakeRequest) (*IntakeResult, error) {
	decision, err := s.engine.Evaluate(ctx, req.Input)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}

	toolName := "benefit_" + req.Input.DecisionContext.DecisionType
	result := &IntakeResult{Decision: decision}

	if decision.Decision == policy.DecisionAllow {
		exec, execErr := s.executor.Execute(ctx, actions.ExecuteRequest{
			RequestedBy:    &req.UserDisplay,
			ToolName:       toolName,
			ToolArgs:       req.ToolArgs,
			DecisionSource: models.DecisionSourceAllow,
		})
		if execErr != nil {
			s.logger.Error("auto-approved action failed to execute",
				zap.String("tool_name", toolName),
				zap.Error(execErr))
		}
		result.Execution = exec

		if err := s.auditSvc.RecordPolicyDecision(nil, decisionDetail(decision)); err != nil {
			s.logger.Warn("failed to record policy decision audit event", zap.Error(err))
		}
		return result, nil
	}

	c := models.NewReviewCase(req.UserDisplay, req.UserMessage, toolName, req.ToolArgs)
	c.RiskLabel = string(decision.RiskLabel)
	c.RiskScore = decision.RiskScore
	c.RiskRationale = decision.RiskRationale
	c.PolicyRefs = decision.PolicyRefs

	if err := s.caseRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to queue case: %w", err)
	}
	result.Case = c

	if err := s.auditSvc.RecordPolicyDecision(&c.ID, decisionDetail(decision)); err != nil {
		s.logger.Warn("failed to record policy decision audit event", zap.Error(err))
	}

	s.logger.Info("case queued for review",
		zap.String("case_id", c.ID.String()),
		zap.String("tool_name", toolName),
		zap.String("decision", string(decision.Decision)),
		zap.Int("risk_score", decision.RiskScore))

	return result, nil
}

// decisionDetail is the audit detail string for a policy decision
func decisionDetail(d *policy.PolicyDecision) string {
	return fmt.Sprintf("%s (%s %d)", d.Decision, d.RiskLabel, d.RiskScore)
}

// GetByID retrieves a case
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewCase, error) {
	return s.caseRepo.GetByID(ctx, id)
}

// List retrieves cases newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.ReviewCase, error) {
	return s.caseRepo.List(ctx, limit, offset)
}

// ListPending retrieves cases still awaiting review
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*models.ReviewCase, error) {
	return s.caseRepo.ListByStatus(ctx,
		[]models.CaseStatus{models.CaseStatusPendingReview, models.CaseStatusNeedsMoreInfo},
		limit, offset)
}

// ReviewRequest is a reviewer verdict on a queued case
type ReviewRequest struct {
	CaseID   uuid.UUID
	Decision models.ReviewerDecision
	Reviewer string
	Note     string
}

// Review applies a reviewer verdict. The status transition and history
// append happen in one transaction; an approved case is then dispatched to
// the target system.
func (s *Service) Review(ctx context.Context, req ReviewRequest) (*models.ReviewCase, error) {
	newStatus, ok := models.StatusForDecision(req.Decision)
	if !ok {
		return nil, fmt.Errorf("decision %q: %w", req.Decision, shared.ErrInvalidDecision)
	}

	var reviewed *models.ReviewCase
	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		c, err := s.caseRepo.GetByID(txCtx, req.CaseID)
		if err != nil {
			return err
		}

		switch c.Status {
		case models.CaseStatusPendingReview, models.CaseStatusNeedsMoreInfo:
			// reviewable
		default:
			return fmt.Errorf("case %s in status %s: %w", c.ID, c.Status, shared.ErrCaseAlreadyResolved)
		}

		c.Status = newStatus
		c.ReviewedBy = &req.Reviewer
		if req.Note != "" {
			c.ReviewerNote = &req.Note
		}
		c.AppendHistory(req.Reviewer, auditActionForDecision(req.Decision), req.Note)

		if err := s.caseRepo.Update(txCtx, c); err != nil {
			return err
		}

		reviewed = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.auditSvc.RecordReviewerAction(auditActionForDecision(req.Decision), reviewed.ID, req.Reviewer, req.Note); err != nil {
		s.logger.Warn("failed to record reviewer audit event", zap.Error(err))
	}

	if reviewed.Status == models.CaseStatusApproved {
		if _, execErr := s.executor.Execute(ctx, actions.ExecuteRequest{
			CaseID:         &reviewed.ID,
			RequestedBy:    &reviewed.UserDisplay,
			Approver:       &req.Reviewer,
			ToolName:       reviewed.ToolName,
			ToolArgs:       reviewed.ToolArgsRedacted,
			DecisionSource: models.DecisionSourceApproved,
		}); execErr != nil {
			s.logger.Error("approved action failed to execute",
				zap.String("case_id", reviewed.ID.String()),
				zap.Error(execErr))
		}
	}

	s.logger.Info("case reviewed",
		zap.String("case_id", reviewed.ID.String()),
		zap.String("decision", string(req.Decision)),
		zap.String("reviewer", req.Reviewer))

	return reviewed, nil
}

// Expire moves a stale case to EXPIRED. Used by the SLA checker.
func (s *Service) Expire(ctx context.Context, id uuid.UUID, age time.Duration) error {
	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		c, err := s.caseRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		switch c.Status {
		case models.CaseStatusPendingReview, models.CaseStatusNeedsMoreInfo:
			// still open
		default:
			return fmt.Errorf("case %s in status %s: %w", c.ID, c.Status, shared.ErrCaseAlreadyResolved)
		}

		c.Status = models.CaseStatusExpired
		c.AppendHistory(models.AuditActorSystem, models.AuditActionCaseExpired,
			fmt.Sprintf("expired after %s without review", age.Round(time.Minute)))

		return s.caseRepo.Update(txCtx, c)
	})
	if err != nil {
		// A case resolved between sweep and expire is not a failure
		if errors.Is(err, shared.ErrCaseAlreadyResolved) {
			return nil
		}
		return err
	}

	if err := s.auditSvc.RecordCaseExpired(id, age); err != nil {
		s.logger.Warn("failed to record case expiration audit event", zap.Error(err))
	}

	return nil
}

func auditActionForDecision(d models.ReviewerDecision) string {
	switch d {
	case models.ReviewerDecisionApprove:
		return models.AuditActionCaseApproved
	case models.ReviewerDecisionReject:
		return models.AuditActionCaseRejected
	default:
		return models.AuditActionInfoRequested
	}
}
