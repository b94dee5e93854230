package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/ecoly/ecoly/internal/audit/http"
	"github.com/ecoly/ecoly/internal/auth"
	"github.com/ecoly/ecoly/internal/modules"
	"github.com/ecoly/ecoly/internal/observability"
	"github.com/ecoly/ecoly/internal/platform/httpx"
	rbachttp "github.com/ecoly/ecoly/internal/rbac/http"
	"github.com/ecoly/ecoly/internal/shared"
	"github.com/ecoly/ecoly/internal/students"
	"github.com/ecoly/ecoly/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthMiddleware auth.Middleware

	AuthHandler        *auth.Handler
	ModulesHandler     *modules.Handler
	PermissionsHandler *rbachttp.Handler
	StudentsHandler    *students.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Ecoly defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.Handle("/static/*", staticHandler(params.Logger))

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Auth:           params.AuthMiddleware,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.ModulesHandler != nil {
			params.ModulesHandler.MountRoutes(r)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		r.Route("/api", func(r chi.Router) {
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountAPIRoutes)
			}
			if params.StudentsHandler != nil {
				r.Route("/students", params.StudentsHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				r.Route("/audit", params.AuditHandler.MountRoutes)
			}
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
