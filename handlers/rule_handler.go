package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/atlas-hitl/review-plane/middleware"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/atlas-hitl/review-plane/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRuleRequest represents a request to create a policy rule
type CreateRuleRequest struct {
	RuleName      string          `json:"rule_name" validate:"required,max=255"`
	ToolName      string          `json:"tool_name" validate:"required,max=255"`
	Description   *string         `json:"description,omitempty"`
	RiskThreshold float64         `json:"risk_threshold" validate:"gte=0,lte=100"`
	RiskWeight    float64         `json:"risk_weight" validate:"gte=0"`
	PatternRegex  *string         `json:"pattern_regex,omitempty"`
	PatternField  *string         `json:"pattern_field,omitempty"`
	PolicyRefs    []string        `json:"policy_refs"`
	Conditions    json.RawMessage `json:"conditions"`
	Priority      int             `json:"priority" validate:"gte=0"`
	Enabled       *bool           `json:"enabled,omitempty"`
}

// UpdateRuleRequest represents a request to update a policy rule
type UpdateRuleRequest struct {
	RuleName      *string          `json:"rule_name,omitempty" validate:"omitempty,max=255"`
	ToolName      *string          `json:"tool_name,omitempty" validate:"omitempty,max=255"`
	Description   *string          `json:"description,omitempty"`
	RiskThreshold *float64         `json:"risk_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	RiskWeight    *float64         `json:"risk_weight,omitempty" validate:"omitempty,gte=0"`
	PatternRegex  *string          `json:"pattern_regex,omitempty"`
	PatternField  *string          `json:"pattern_field,omitempty"`
	PolicyRefs    []string         `json:"policy_refs,omitempty"`
	Conditions    *json.RawMessage `json:"conditions,omitempty"`
	Priority      *int             `json:"priority,omitempty" validate:"omitempty,gte=0"`
	Enabled       *bool            `json:"enabled,omitempty"`
}

// RuleHandler handles policy rule management HTTP requests
type RuleHandler struct {
	ruleRepo repositories.RuleRepository
	logger   *zap.Logger
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(ruleRepo repositories.RuleRepository, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{
		ruleRepo: ruleRepo,
		logger:   logger,
	}
}

// HandleListRules handles GET /api/v1/rules
func (h *RuleHandler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		rules []*models.PolicyRule
		err   error
	)
	if toolName := r.URL.Query().Get("tool_name"); toolName != "" {
		rules, err = h.ruleRepo.GetForTool(ctx, toolName)
	} else {
		rules, err = h.ruleRepo.GetAll(ctx)
	}
	if err != nil {
		h.logger.Error("failed to list rules", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, rules)
}

// HandleGetRule handles GET /api/v1/rules/{id}
func (h *RuleHandler) HandleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid rule ID format", nil)
		return
	}

	rule, err := h.ruleRepo.GetByID(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, rule)
}

// HandleCreateRule handles POST /api/v1/rules
func (h *RuleHandler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateRuleRequest
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

	rule := models.NewPolicyRule(req.RuleName, req.ToolName, req.RiskThreshold, req.RiskWeight, req.Priority)
	rule.Description = req.Description
	rule.PatternRegex = req.PatternRegex
	rule.PatternField = req.PatternField
	if req.PolicyRefs != nil {
		rule.PolicyRefs = req.PolicyRefs
	}
	if len(req.Conditions) > 0 {
		rule.Conditions = req.Conditions
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.ruleRepo.Create(ctx, rule); err != nil {
		h.logger.Error("failed to create rule",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("rule created",
		zap.String("request_id", requestID),
		zap.String("rule_id", rule.ID.String()),
		zap.String("rule_name", rule.RuleName))

	_ = utils.WriteCreated(w, rule)
}

// HandleUpdateRule handles PATCH /api/v1/rules/{id}
func (h *RuleHandler) HandleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid rule ID format", nil)
		return
	}

	var req UpdateRuleRequest
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

	rule, err := h.ruleRepo.GetByID(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if req.RuleName != nil {
		rule.RuleName = *req.RuleName
	}
	if req.ToolName != nil {
		rule.ToolName = *req.ToolName
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.RiskThreshold != nil {
		rule.RiskThreshold = *req.RiskThreshold
	}
	if req.RiskWeight != nil {
		rule.RiskWeight = *req.RiskWeight
	}
	if req.PatternRegex != nil {
		rule.PatternRegex = req.PatternRegex
	}
	if req.PatternField != nil {
		rule.PatternField = req.PatternField
	}
	if req.PolicyRefs != nil {
		rule.PolicyRefs = req.PolicyRefs
	}
	if req.Conditions != nil {
		rule.Conditions = *req.Conditions
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.ruleRepo.Update(ctx, rule); err != nil {
		h.logger.Error("failed to update rule",
			zap.String("request_id", requestID),
			zap.String("rule_id", id.String()),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("rule updated",
		zap.String("request_id", requestID),
		zap.String("rule_id", id.String()))

	_ = utils.WriteOK(w, rule)
}

// HandleDeleteRule handles DELETE /api/v1/rules/{id}
func (h *RuleHandler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid rule ID format", nil)
		return
	}

	if err := h.ruleRepo.Delete(ctx, id); err != nil {
		h.logger.Error("failed to delete rule",
			zap.String("request_id", requestID),
			zap.String("rule_id", id.String()),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("rule deleted",
		zap.String("request_id", requestID),
		zap.String("rule_id", id.String()))

	utils.WriteNoContent(w)
}
