package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atlas-hitl/review-plane/middleware"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postExecute(t *testing.T, handler *ActionHandler, body string, withClaims bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/execute", strings.NewReader(body))
	if withClaims {
		req = req.WithContext(middleware.WithClaims(req.Context(), approverClaims("maria")))
	}
	w := httptest.NewRecorder()
	handler.HandleExecuteAction(w, req)
	return w
}

func TestHandleExecuteAction(t *testing.T) {
	env := newTestEnv(t)
	handler := NewActionHandler(env.executor, env.logger)

	c := queueCase(t, env)

	body := `{"case_id": "` + c.ID.String() + `", "tool_name": "benefit_deny", "tool_args": {"case_ref": "C-1001"}}`
	w := postExecute(t, handler, body, true)

	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "benefit_deny", data["tool_name"])
	assert.Equal(t, "EXECUTED", data["status"])
	assert.Equal(t, "APPROVED", data["decision_source"])
	assert.Equal(t, "maria", data["approver"])

	execs, err := env.execRepo.ListByCase(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.DecisionSourceApproved, execs[0].DecisionSource)
}

func TestHandleExecuteAction_RequiresClaims(t *testing.T) {
	env := newTestEnv(t)
	handler := NewActionHandler(env.executor, env.logger)

	w := postExecute(t, handler, `{"tool_name": "benefit_deny"}`, false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleExecuteAction_MissingToolName(t *testing.T) {
	env := newTestEnv(t)
	handler := NewActionHandler(env.executor, env.logger)

	w := postExecute(t, handler, `{"tool_args": {}}`, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListCaseExecutions(t *testing.T) {
	env := newTestEnv(t)
	handler := NewActionHandler(env.executor, env.logger)

	c := queueCase(t, env)
	body := `{"case_id": "` + c.ID.String() + `", "tool_name": "benefit_deny"}`
	require.Equal(t, http.StatusOK, postExecute(t, handler, body, true).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/actions?case_id="+c.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.HandleListCaseExecutions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, decodeBody(w, &response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, c.ID.String(), response.Data[0]["case_id"])
}

func TestHandleListCaseExecutions_RequiresCaseID(t *testing.T) {
	env := newTestEnv(t)
	handler := NewActionHandler(env.executor, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/actions", nil)
	w := httptest.NewRecorder()
	handler.HandleListCaseExecutions(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/actions?case_id="+uuid.New().String(), nil)
	w = httptest.NewRecorder()
	handler.HandleListCaseExecutions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
