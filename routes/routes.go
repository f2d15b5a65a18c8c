package routes

import (
	"net/http"
	"time"

	"github.com/atlas-hitl/review-plane/app"
	"github.com/atlas-hitl/review-plane/handlers"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB.DB, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.Config.Auth.TokenTTL, deps.Config.IsProduction(), deps.Logger)
	policyHandler := handlers.NewPolicyHandler(deps.CaseService, deps.Logger)
	caseHandler := handlers.NewCaseHandler(deps.CaseService, deps.SLAChecker, deps.Logger)
	auditHandler := handlers.NewAuditHandler(deps.AuditService, deps.Logger)
	ruleHandler := handlers.NewRuleHandler(deps.Rules, deps.Logger)
	actionHandler := handlers.NewActionHandler(deps.Executor, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// Auth endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(deps.AuthMiddleware.RequireAuth).Get("/me", authHandler.HandleMe)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Policy evaluation (any authenticated account)
		r.Route("/policy", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/decide", policyHandler.HandleDecide)
		})

		// Review queue (approvers only)
		r.Route("/cases", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleApprover))
			r.Get("/", caseHandler.HandleListCases)
			r.Post("/check-sla", caseHandler.HandleCheckSLA)
			r.Get("/{id}", caseHandler.HandleGetCase)
			r.Post("/{id}/decide", caseHandler.HandleReviewCase)
		})

		// Audit trail (approvers only)
		r.Route("/audit", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleApprover))
			r.Get("/", auditHandler.HandleListAudit)
		})

		// Rule management (approvers only)
		r.Route("/rules", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleApprover))
			r.Get("/", ruleHandler.HandleListRules)
			r.Post("/", ruleHandler.HandleCreateRule)
			r.Get("/{id}", ruleHandler.HandleGetRule)
			r.Patch("/{id}", ruleHandler.HandleUpdateRule)
			r.Delete("/{id}", ruleHandler.HandleDeleteRule)
		})

		// Action execution (approvers only)
		r.Route("/actions", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleApprover))
			r.Get("/", actionHandler.HandleListCaseExecutions)
			r.Post("/execute", actionHandler.HandleExecuteAction)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
