package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/atlas-hitl/review-plane/middleware"
	"github.com/atlas-hitl/review-plane/services/cases"
	"github.com/atlas-hitl/review-plane/services/policy"
	"github.com/atlas-hitl/review-plane/utils"
	"go.uber.org/zap"
)

// decisionTypes are the accepted decision_context.decision_type values
var decisionTypes = []string{"approve", "deny", "reduce", "suspend", "continue_review"}

// DecideRequest represents a proposed benefit action submitted for evaluation
type DecideRequest struct {
	UserDisplay string             `json:"user_display" validate:"required,max=255"`
	UserMessage string             `json:"user_message" validate:"max=4000"`
	ToolArgs    json.RawMessage    `json:"tool_args,omitempty"`
	Input       policy.PolicyInput `json:"input"`
}

// PolicyHandler handles policy evaluation HTTP requests
type PolicyHandler struct {
	caseSvc *cases.Service
	logger  *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(caseSvc *cases.Service, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		caseSvc: caseSvc,
		logger:  logger,
	}
}

// HandleDecide handles POST /api/v1/policy/decide
func (h *PolicyHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := utils.ValidateOneOf(req.Input.DecisionContext.DecisionType,
		"decision_context.decision_type", decisionTypes); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.caseSvc.Intake(ctx, cases.IntakeRequest{
		UserDisplay: req.UserDisplay,
		UserMessage: req.UserMessage,
		Input:       &req.Input,
		ToolArgs:    req.ToolArgs,
	})
	if err != nil {
		h.logger.Error("intake failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("policy decision returned",
		zap.String("request_id", requestID),
		zap.String("decision", string(result.Decision.Decision)),
		zap.Int("risk_score", result.Decision.RiskScore))

	_ = utils.WriteOK(w, result)
}
