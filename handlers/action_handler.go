package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/atlas-hitl/review-plane/middleware"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/services/actions"
	"github.com/atlas-hitl/review-plane/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExecuteActionRequest represents a direct action execution request.
// Used by operators to re-dispatch an approved case's action.
type ExecuteActionRequest struct {
	CaseID   *uuid.UUID      `json:"case_id,omitempty"`
	ToolName string          `json:"tool_name" validate:"required,max=255"`
	ToolArgs json.RawMessage `json:"tool_args,omitempty"`
}

// ActionHandler handles action execution HTTP requests
type ActionHandler struct {
	executor *actions.Executor
	logger   *zap.Logger
}

// NewActionHandler creates a new ActionHandler
func NewActionHandler(executor *actions.Executor, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{
		executor: executor,
		logger:   logger,
	}
}

// HandleExecuteAction handles POST /api/v1/actions/execute
func (h *ActionHandler) HandleExecuteAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ExecuteActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	approver := claims.DisplayName
	exec, err := h.executor.Execute(ctx, actions.ExecuteRequest{
		CaseID:         req.CaseID,
		Approver:       &approver,
		ToolName:       req.ToolName,
		ToolArgs:       req.ToolArgs,
		DecisionSource: models.DecisionSourceApproved,
	})
	if err != nil {
		h.logger.Error("action execution failed",
			zap.String("request_id", requestID),
			zap.String("tool_name", req.ToolName),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, exec)
}

// HandleListCaseExecutions handles GET /api/v1/actions?case_id={id}
func (h *ActionHandler) HandleListCaseExecutions(w http.ResponseWriter, r *http.Request) {
	caseIDStr := r.URL.Query().Get("case_id")
	if caseIDStr == "" {
		_ = utils.WriteBadRequest(w, "case_id query parameter is required", nil)
		return
	}

	caseID, err := uuid.Parse(caseIDStr)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid case_id format", nil)
		return
	}

	execs, err := h.executor.ListByCase(r.Context(), caseID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, execs)
}
