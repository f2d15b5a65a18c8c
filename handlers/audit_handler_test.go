package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atlas-hitl/review-plane/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAuditEvents(t *testing.T, env *testEnv, caseID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.auditRepo.Insert(ctx,
		models.NewAuditEvent(models.AuditActorPolicyEngine, models.AuditActionPolicyDecision).
			WithCase(caseID).
			WithDetail("ESCALATE (NEEDS_HUMAN 70)")))
	require.NoError(t, env.auditRepo.Insert(ctx,
		models.NewAuditEvent(models.AuditActorReviewer, models.AuditActionCaseApproved).
			WithCase(caseID).
			WithDetail("maria")))
	require.NoError(t, env.auditRepo.Insert(ctx,
		models.NewAuditEvent(models.AuditActorSystem, models.AuditActionUserRegistered)))
}

func TestHandleListAudit(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuditHandler(env.auditSvc, env.logger)

	seedAuditEvents(t, env, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	w := httptest.NewRecorder()
	handler.HandleListAudit(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, decodeBody(w, &response))
	assert.Len(t, response.Data, 3)
}

func TestHandleListAudit_CaseFilter(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuditHandler(env.auditSvc, env.logger)

	caseID := uuid.New()
	seedAuditEvents(t, env, caseID)

	req := httptest.NewRequest(http.MethodGet, "/audit?case_id="+caseID.String(), nil)
	w := httptest.NewRecorder()
	handler.HandleListAudit(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, decodeBody(w, &response))
	require.Len(t, response.Data, 2)
	for _, event := range response.Data {
		assert.Equal(t, caseID.String(), event["case_id"])
	}
}

func TestHandleListAudit_InvalidCaseID(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuditHandler(env.auditSvc, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/audit?case_id=not-a-uuid", nil)
	w := httptest.NewRecorder()
	handler.HandleListAudit(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
