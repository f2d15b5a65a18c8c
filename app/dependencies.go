package app

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-hitl/review-plane/config"
	"github.com/atlas-hitl/review-plane/middleware"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/atlas-hitl/review-plane/repositories/postgres"
	"github.com/atlas-hitl/review-plane/services/actions"
	"github.com/atlas-hitl/review-plane/services/audit"
	"github.com/atlas-hitl/review-plane/services/auth"
	"github.com/atlas-hitl/review-plane/services/cases"
	"github.com/atlas-hitl/review-plane/services/policy"
	"github.com/atlas-hitl/review-plane/services/sla"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Cases      repositories.CaseRepository
	Rules      repositories.RuleRepository
	AuditLog   repositories.AuditRepository
	Users      repositories.UserRepository
	Executions repositories.ActionExecutionRepository
	TxManager  repositories.TransactionManager

	// Services
	Engine       *policy.Engine
	AuditService *audit.Service
	Executor     *actions.Executor
	CaseService  *cases.Service
	SLAChecker   *sla.Checker
	AuthService  *auth.Service

	// Middleware
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	// Test the connection
	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Initialize audit schema when using separate audit DB
	if err := factory.InitAuditSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() error {
	repos := d.RepoFactory.NewRepositories()

	d.Cases = repos.Cases
	d.Rules = repos.Rules
	d.AuditLog = repos.AuditLog
	d.Users = repos.Users
	d.Executions = repos.Executions
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices wires the policy engine, the review pipeline around it and auth
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Engine = policy.NewEngine(d.Rules, cfg.Policy.RuleFetchTimeout, d.Logger)

	d.AuditService = audit.NewService(d.AuditLog, d.Logger, audit.DefaultConfig())
	d.Executor = actions.NewExecutor(nil, d.Executions, d.Logger)

	d.CaseService = cases.NewService(d.Engine, d.Cases, d.TxManager, d.AuditService, d.Executor, d.Logger)
	d.SLAChecker = sla.NewChecker(d.Cases, d.CaseService, cfg.SLA.Window, cfg.SLA.CheckInterval, d.Logger)

	d.AuthService = auth.NewService(d.Users, cfg.Auth, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService, d.Logger)

	d.Logger.Info("services initialized",
		zap.Duration("rule_fetch_timeout", cfg.Policy.RuleFetchTimeout),
		zap.Duration("sla_window", cfg.SLA.Window))
}

// Start launches the background workers (audit sink, SLA sweeps)
func (d *Dependencies) Start() error {
	if err := d.AuditService.Start(); err != nil {
		return err
	}
	d.SLAChecker.Start()
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.SLAChecker != nil {
		d.SLAChecker.Stop()
	}

	if d.AuditService != nil {
		if err := d.AuditService.Stop(10 * time.Second); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
