package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atlas-hitl/review-plane/middleware"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/services/cases"
	"github.com/atlas-hitl/review-plane/services/sla"
	"github.com/atlas-hitl/review-plane/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewCaseRequest represents a reviewer verdict on a case
type ReviewCaseRequest struct {
	Decision models.ReviewerDecision `json:"decision" validate:"required,oneof=APPROVE REJECT REQUEST_INFO"`
	Note     string                  `json:"note" validate:"max=4000"`
}

// CaseHandler handles review-queue HTTP requests
type CaseHandler struct {
	caseSvc    *cases.Service
	slaChecker *sla.Checker
	logger     *zap.Logger
}

// NewCaseHandler creates a new CaseHandler
func NewCaseHandler(caseSvc *cases.Service, slaChecker *sla.Checker, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		caseSvc:    caseSvc,
		slaChecker: slaChecker,
		logger:     logger,
	}
}

// HandleListCases handles GET /api/v1/cases
func (h *CaseHandler) HandleListCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := paginationParams(r)

	var (
		list []*models.ReviewCase
		err  error
	)
	if r.URL.Query().Get("status") == "open" {
		list, err = h.caseSvc.ListPending(ctx, limit, offset)
	} else {
		list, err = h.caseSvc.List(ctx, limit, offset)
	}
	if err != nil {
		h.logger.Error("failed to list cases", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, list)
}

// HandleGetCase handles GET /api/v1/cases/{id}
func (h *CaseHandler) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid case ID format", nil)
		return
	}

	c, err := h.caseSvc.GetByID(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, c)
}

// HandleReviewCase handles POST /api/v1/cases/{id}/decide
func (h *CaseHandler) HandleReviewCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid case ID format", nil)
		return
	}

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ReviewCaseRequest
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

	reviewed, err := h.caseSvc.Review(ctx, cases.ReviewRequest{
		CaseID:   id,
		Decision: req.Decision,
		Reviewer: claims.DisplayName,
		Note:     req.Note,
	})
	if err != nil {
		h.logger.Warn("case review failed",
			zap.String("request_id", requestID),
			zap.String("case_id", id.String()),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, reviewed)
}

// CheckSLAResponse is the response for a manual SLA sweep
type CheckSLAResponse struct {
	Expired int    `json:"expired"`
	Window  string `json:"window"`
}

// HandleCheckSLA handles POST /api/v1/cases/check-sla
func (h *CaseHandler) HandleCheckSLA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	expired, err := h.slaChecker.Sweep(ctx)
	if err != nil {
		h.logger.Error("SLA sweep failed", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, CheckSLAResponse{
		Expired: expired,
		Window:  h.slaChecker.Window().String(),
	})
}

// paginationParams reads limit/offset query params with sane bounds
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
