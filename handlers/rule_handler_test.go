package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atlas-hitl/review-plane/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleRouter(handler *RuleHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/rules", handler.HandleListRules)
	r.Post("/rules", handler.HandleCreateRule)
	r.Get("/rules/{id}", handler.HandleGetRule)
	r.Patch("/rules/{id}", handler.HandleUpdateRule)
	r.Delete("/rules/{id}", handler.HandleDeleteRule)
	return r
}

func seedRule(t *testing.T, env *testEnv, name, toolName string) *models.PolicyRule {
	t.Helper()
	rule := models.NewPolicyRule(name, toolName, 60, 1, 100)
	rule.PolicyRefs = []string{"POLICY-OVERSIGHT-002"}
	require.NoError(t, env.ruleRepo.Create(context.Background(), rule))
	return rule
}

func TestHandleListRules(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	seedRule(t, env, "deny-watch", "benefit_deny")
	seedRule(t, env, "catch-all", "%")

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, decodeBody(w, &response))
	assert.Len(t, response.Data, 2)
}

func TestHandleListRules_ToolNameFilter(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	seedRule(t, env, "deny-watch", "benefit_deny")
	seedRule(t, env, "suspend-watch", "benefit_suspend")
	seedRule(t, env, "catch-all", "%")

	req := httptest.NewRequest(http.MethodGet, "/rules?tool_name=benefit_deny", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, decodeBody(w, &response))
	require.Len(t, response.Data, 2)
	names := []string{response.Data[0]["rule_name"].(string), response.Data[1]["rule_name"].(string)}
	assert.ElementsMatch(t, []string{"deny-watch", "catch-all"}, names)
}

func TestHandleCreateRule(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	body := `{
		"rule_name": "overlap-watch",
		"tool_name": "benefit_%",
		"risk_threshold": 65,
		"risk_weight": 2,
		"priority": 10,
		"policy_refs": ["POLICY-OVERLAP-003"],
		"conditions": {"structured_inputs.benefit_overlap_status": "possible"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "overlap-watch", data["rule_name"])
	assert.Equal(t, "benefit_%", data["tool_name"])
	assert.Equal(t, float64(65), data["risk_threshold"])
	assert.Equal(t, true, data["enabled"])
	assert.NotEmpty(t, data["id"])

	// Persisted and visible to the matcher.
	rules, err := env.ruleRepo.GetForTool(context.Background(), "benefit_deny")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.JSONEq(t, `{"structured_inputs.benefit_overlap_status": "possible"}`, string(rules[0].Conditions))
}

func TestHandleCreateRule_ThresholdOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	body := `{"rule_name": "bad", "tool_name": "benefit_deny", "risk_threshold": 150, "risk_weight": 1}`
	req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreateRule_MissingName(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	body := `{"tool_name": "benefit_deny", "risk_threshold": 50, "risk_weight": 1}`
	req := httptest.NewRequest(http.MethodPost, "/rules", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetRule(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	rule := seedRule(t, env, "deny-watch", "benefit_deny")

	req := httptest.NewRequest(http.MethodGet, "/rules/"+rule.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, rule.ID.String(), data["id"])
	assert.Equal(t, "deny-watch", data["rule_name"])
}

func TestHandleGetRule_NotFound(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	req := httptest.NewRequest(http.MethodGet, "/rules/6f1e1c6e-5c5f-4a4e-9e8d-2b7a30f3a111", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUpdateRule_PartialMerge(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	rule := seedRule(t, env, "deny-watch", "benefit_deny")

	body := `{"risk_threshold": 85, "enabled": false}`
	req := httptest.NewRequest(http.MethodPatch, "/rules/"+rule.ID.String(), strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(85), data["risk_threshold"])
	assert.Equal(t, false, data["enabled"])

	// Untouched fields keep their values.
	assert.Equal(t, "deny-watch", data["rule_name"])
	assert.Equal(t, "benefit_deny", data["tool_name"])
}

func TestHandleUpdateRule_NotFound(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	body := `{"priority": 5}`
	req := httptest.NewRequest(http.MethodPatch, "/rules/6f1e1c6e-5c5f-4a4e-9e8d-2b7a30f3a111", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDeleteRule(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	rule := seedRule(t, env, "deny-watch", "benefit_deny")

	req := httptest.NewRequest(http.MethodDelete, "/rules/"+rule.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := env.ruleRepo.GetByID(context.Background(), rule.ID)
	assert.Error(t, err)
}

func TestHandleDeleteRule_InvalidID(t *testing.T) {
	env := newTestEnv(t)
	router := ruleRouter(NewRuleHandler(env.ruleRepo, env.logger))

	req := httptest.NewRequest(http.MethodDelete, "/rules/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
