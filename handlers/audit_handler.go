package handlers

import (
	"net/http"

	"github.com/atlas-hitl/review-plane/services/audit"
	"github.com/atlas-hitl/review-plane/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditHandler handles audit trail HTTP requests
type AuditHandler struct {
	auditSvc *audit.Service
	logger   *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditSvc *audit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditSvc: auditSvc,
		logger:   logger,
	}
}

// HandleListAudit handles GET /api/v1/audit
// An optional case_id query param filters events to one case.
func (h *AuditHandler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := paginationParams(r)

	if caseIDStr := r.URL.Query().Get("case_id"); caseIDStr != "" {
		caseID, err := uuid.Parse(caseIDStr)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid case_id format", nil)
			return
		}

		events, err := h.auditSvc.ListByCase(ctx, caseID, limit, offset)
		if err != nil {
			h.logger.Error("failed to list audit events for case", zap.Error(err))
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, events)
		return
	}

	events, err := h.auditSvc.List(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list audit events", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, events)
}
