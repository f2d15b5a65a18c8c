package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/atlas-hitl/review-plane/config"
	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/atlas-hitl/review-plane/services/actions"
	"github.com/atlas-hitl/review-plane/services/audit"
	"github.com/atlas-hitl/review-plane/services/auth"
	"github.com/atlas-hitl/review-plane/services/cases"
	"github.com/atlas-hitl/review-plane/services/policy"
	"github.com/atlas-hitl/review-plane/services/sla"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory repository stubs for handler tests. They exercise the real
// service stack against maps instead of Postgres.

type stubCaseRepo struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*models.ReviewCase
}

func newStubCaseRepo() *stubCaseRepo {
	return &stubCaseRepo{cases: make(map[uuid.UUID]*models.ReviewCase)}
}

func (s *stubCaseRepo) Create(_ context.Context, c *models.ReviewCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = c
	return nil
}

func (s *stubCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ReviewCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", id, shared.ErrNotFound)
	}
	return c, nil
}

func (s *stubCaseRepo) List(_ context.Context, limit, offset int) ([]*models.ReviewCase, error) {
	return s.snapshot(func(*models.ReviewCase) bool { return true }), nil
}

func (s *stubCaseRepo) ListByStatus(_ context.Context, statuses []models.CaseStatus, limit, offset int) ([]*models.ReviewCase, error) {
	return s.snapshot(func(c *models.ReviewCase) bool {
		for _, st := range statuses {
			if c.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (s *stubCaseRepo) ListStale(_ context.Context, statuses []models.CaseStatus, cutoff time.Time) ([]*models.ReviewCase, error) {
	return s.snapshot(func(c *models.ReviewCase) bool {
		for _, st := range statuses {
			if c.Status == st && c.CreatedAt.Before(cutoff) {
				return true
			}
		}
		return false
	}), nil
}

func (s *stubCaseRepo) Update(_ context.Context, c *models.ReviewCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; !ok {
		return fmt.Errorf("case %s: %w", c.ID, shared.ErrNotFound)
	}
	s.cases[c.ID] = c
	return nil
}

func (s *stubCaseRepo) snapshot(keep func(*models.ReviewCase) bool) []*models.ReviewCase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ReviewCase, 0, len(s.cases))
	for _, c := range s.cases {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type stubRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]*models.PolicyRule
	err   error
}

func newStubRuleRepo() *stubRuleRepo {
	return &stubRuleRepo{rules: make(map[uuid.UUID]*models.PolicyRule)}
}

func (s *stubRuleRepo) Create(_ context.Context, rule *models.PolicyRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	return nil
}

func (s *stubRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PolicyRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", id, shared.ErrNotFound)
	}
	return rule, nil
}

func (s *stubRuleRepo) GetAll(_ context.Context) ([]*models.PolicyRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.PolicyRule, 0, len(s.rules))
	for _, rule := range s.rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (s *stubRuleRepo) GetForTool(_ context.Context, toolName string) ([]*models.PolicyRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	all, _ := s.GetAll(context.Background())
	out := make([]*models.PolicyRule, 0, len(all))
	for _, rule := range all {
		if rule.MatchesTool(toolName) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *stubRuleRepo) Update(_ context.Context, rule *models.PolicyRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return fmt.Errorf("rule %s: %w", rule.ID, shared.ErrNotFound)
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *stubRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("rule %s: %w", id, shared.ErrNotFound)
	}
	delete(s.rules, id)
	return nil
}

type stubAuditRepo struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func (s *stubAuditRepo) Insert(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubAuditRepo) List(_ context.Context, limit, offset int) ([]*models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AuditEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *stubAuditRepo) ListByCase(_ context.Context, caseID uuid.UUID, limit, offset int) ([]*models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditEvent
	for _, e := range s.events {
		if e.CaseID != nil && *e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubExecRepo struct {
	mu    sync.Mutex
	execs map[uuid.UUID]*models.ActionExecution
}

func newStubExecRepo() *stubExecRepo {
	return &stubExecRepo{execs: make(map[uuid.UUID]*models.ActionExecution)}
}

func (s *stubExecRepo) Create(_ context.Context, exec *models.ActionExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[exec.ID] = exec
	return nil
}

func (s *stubExecRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ActionExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return nil, fmt.Errorf("execution %s: %w", id, shared.ErrNotFound)
	}
	return exec, nil
}

func (s *stubExecRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*models.ActionExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ActionExecution
	for _, exec := range s.execs {
		if exec.CaseID != nil && *exec.CaseID == caseID {
			out = append(out, exec)
		}
	}
	return out, nil
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*models.User)}
}

func (s *stubUserRepo) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return fmt.Errorf("email %s: %w", user.Email, shared.ErrEmailTaken)
	}
	s.users[user.Email] = user
	return nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, shared.ErrNotFound)
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, shared.ErrNotFound)
	}
	return u, nil
}

type stubTxManager struct{}

func (stubTxManager) Begin(context.Context) (repositories.Transaction, error) {
	return nil, errors.New("not supported")
}

func (stubTxManager) InTransaction(ctx context.Context, fn func(context.Context, repositories.Transaction) error) error {
	return fn(ctx, nil)
}

// testEnv wires the real service stack over the in-memory stubs
type testEnv struct {
	caseRepo  *stubCaseRepo
	ruleRepo  *stubRuleRepo
	auditRepo *stubAuditRepo
	execRepo  *stubExecRepo
	userRepo  *stubUserRepo

	auditSvc *audit.Service
	caseSvc  *cases.Service
	executor *actions.Executor
	sla      *sla.Checker
	authSvc  *auth.Service
	logger   *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	env := &testEnv{
		caseRepo:  newStubCaseRepo(),
		ruleRepo:  newStubRuleRepo(),
		auditRepo: &stubAuditRepo{},
		execRepo:  newStubExecRepo(),
		userRepo:  newStubUserRepo(),
		logger:    logger,
	}

	env.auditSvc = audit.NewService(env.auditRepo, logger, audit.Config{BufferSize: 100, WorkerCount: 1})
	require.NoError(t, env.auditSvc.Start())
	t.Cleanup(func() { _ = env.auditSvc.Stop(5 * time.Second) })

	engine := policy.NewEngine(env.ruleRepo, time.Second, logger)
	env.executor = actions.NewExecutor(nil, env.execRepo, logger)
	env.caseSvc = cases.NewService(engine, env.caseRepo, stubTxManager{}, env.auditSvc, env.executor, logger)
	env.sla = sla.NewChecker(env.caseRepo, env.caseSvc, 72*time.Hour, 15*time.Minute, logger)

	env.authSvc = auth.NewService(env.userRepo, config.AuthConfig{
		Secret:   "handler-test-secret-16b",
		TokenTTL: time.Hour,
		Issuer:   "atlas-hitl-ui",
		Audience: "atlas-hitl-ui",
	}, logger)

	return env
}

func decodeBody(w *httptest.ResponseRecorder, v interface{}) error {
	return json.NewDecoder(w.Body).Decode(v)
}

func approverClaims(name string) *auth.Claims {
	return &auth.Claims{
		Email:       name + "@example.com",
		DisplayName: name,
		Role:        models.RoleApprover,
	}
}
