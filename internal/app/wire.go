package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/ecoly/ecoly/internal/audit"
	audithttp "github.com/ecoly/ecoly/internal/audit/http"
	"github.com/ecoly/ecoly/internal/auth"
	"github.com/ecoly/ecoly/internal/modules"
	"github.com/ecoly/ecoly/internal/observability"
	"github.com/ecoly/ecoly/internal/rbac"
	rbachttp "github.com/ecoly/ecoly/internal/rbac/http"
	"github.com/ecoly/ecoly/internal/shared"
	"github.com/ecoly/ecoly/internal/students"
	"github.com/ecoly/ecoly/internal/view"
	"github.com/ecoly/ecoly/jobs"
)

// Dependencies are the external collaborators of the web application.
// Optional fields may be nil.
type Dependencies struct {
	Logger  *slog.Logger
	Config  *Config
	Redis   *redis.Client
	Metrics *observability.Metrics

	Users    auth.Repository
	Students students.Repository
	Audit    audithttp.TimelineService
	// Enqueuer receives denial tasks; denials are only counted when nil.
	Enqueuer  audit.Enqueuer
	Inspector jobs.QueueInspector
}

// Application is the assembled web tier.
type Application struct {
	Handler  http.Handler
	Enforcer *rbac.Enforcer
}

// NewApplication validates the permission tables and wires every handler.
// An inconsistent policy is a start-up error.
func NewApplication(deps Dependencies) (*Application, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("app: config required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("app: user repository required")
	}

	evaluator, err := rbac.NewDefaultEvaluator()
	if err != nil {
		return nil, fmt.Errorf("app: permission policy: %w", err)
	}
	var observer rbac.Observer
	if deps.Enqueuer != nil {
		observer = rbac.Observers(deps.Metrics, audit.NewObserver(deps.Enqueuer, logger))
	} else {
		observer = rbac.Observers(deps.Metrics)
	}
	enforcer := rbac.NewEnforcer(evaluator, logger, observer)

	engine, err := view.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("app: templates: %w", err)
	}
	sessions := shared.NewSessionManager(deps.Redis, "ecoly_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authService := auth.NewService(deps.Users, logger)

	pages := view.Pages{Engine: engine, Enforcer: enforcer, CSRF: csrf, Logger: logger}
	guard := rbac.Middleware{Enforcer: enforcer, Logger: logger, Denied: pages.Denied}

	params := RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessions,
		CSRFManager:        csrf,
		AuthMiddleware:     auth.Middleware{Tokens: tokens, Principals: authService, Logger: logger},
		AuthHandler:        auth.NewHandler(logger, authService, tokens, pages, sessions),
		ModulesHandler:     modules.NewHandler(pages, guard, modules.Defaults()),
		PermissionsHandler: rbachttp.NewHandler(logger, enforcer, pages, guard),
		JobHandler:         jobs.NewHandler(deps.Inspector, logger),
		Metrics:            deps.Metrics,
	}
	if deps.Students != nil {
		params.StudentsHandler = students.NewHandler(logger, students.NewService(deps.Students, logger), enforcer)
	}
	if deps.Audit != nil {
		params.AuditHandler = audithttp.NewHandler(logger, deps.Audit, enforcer)
	}
	return &Application{Handler: NewRouter(params), Enforcer: enforcer}, nil
}
