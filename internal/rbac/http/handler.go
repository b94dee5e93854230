// Package rbachttp exposes the permission catalog and role matrix over HTTP.
package rbachttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
	"github.com/ecoly/ecoly/internal/view"
)

// Handler serves permission listings.
type Handler struct {
	logger   *slog.Logger
	enforcer *rbac.Enforcer
	pages    view.Pages
	guard    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, enforcer *rbac.Enforcer, pages view.Pages, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, enforcer: enforcer, pages: pages, guard: guard}
}

// MountRoutes registers the HTML matrix page.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequirePermission(shared.PermSettingsView)).Get("/", h.showMatrix)
}

// MountAPIRoutes registers the JSON endpoints.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Get("/me", h.getMine)
	r.Get("/roles/{role}", h.getRole)
}

// Matrix is the role × permission table grouped by module.
type Matrix struct {
	Roles   []rbac.Role
	Modules []MatrixModule
	Columns int
}

// MatrixModule groups the rows of one module.
type MatrixModule struct {
	Name string
	Rows []MatrixRow
}

// MatrixRow records which roles hold a permission, in Roles order.
type MatrixRow struct {
	Permission rbac.Permission
	Granted    []bool
}

// BuildMatrix evaluates every role against every catalog permission.
func BuildMatrix(ev *rbac.Evaluator) (Matrix, error) {
	roles := rbac.Roles()
	m := Matrix{Roles: roles, Columns: len(roles) + 1}
	byModule := make(map[string]int)
	for _, p := range ev.ListPermissions() {
		row := MatrixRow{Permission: p, Granted: make([]bool, len(roles))}
		for i, role := range roles {
			ok, err := ev.HasPermission(role, p.ID)
			if err != nil {
				return Matrix{}, err
			}
			row.Granted[i] = ok
		}
		idx, ok := byModule[p.Module]
		if !ok {
			idx = len(m.Modules)
			byModule[p.Module] = idx
			m.Modules = append(m.Modules, MatrixModule{Name: p.Module})
		}
		m.Modules[idx].Rows = append(m.Modules[idx].Rows, row)
	}
	return m, nil
}

func (h *Handler) showMatrix(w http.ResponseWriter, r *http.Request) {
	matrix, err := BuildMatrix(h.enforcer.Evaluator())
	if err != nil {
		h.logger.Error("build permission matrix", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "permissions.html", "Permissions", matrix)
}

type permissionsResponse struct {
	Role        rbac.Role         `json:"role"`
	Permissions []rbac.Permission `json:"permissions"`
	Modules     []string          `json:"modules"`
}

func (h *Handler) getMine(w http.ResponseWriter, r *http.Request) {
	if err := h.enforcer.AuthorizeRequest(r, rbac.Requirement{}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := rbac.PrincipalFromContext(r.Context())
	h.respondRole(w, p.Role)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	if err := h.enforcer.AuthorizeRequest(r, rbac.RequirePermission(shared.PermUsersManage)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := rbac.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrNotFound, err))
		return
	}
	h.respondRole(w, role)
}

func (h *Handler) respondRole(w http.ResponseWriter, role rbac.Role) {
	ev := h.enforcer.Evaluator()
	perms, err := ev.RolePermissions(role)
	if err != nil {
		h.logger.Error("role permissions", slog.String("role", string(role)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	modules, err := ev.RoleModules(role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if modules == nil {
		modules = []string{}
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Role: role, Permissions: perms, Modules: modules})
}
