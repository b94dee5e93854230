package students

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
)

// Handler exposes the students JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enforcer *rbac.Enforcer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, enforcer *rbac.Enforcer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enforcer: enforcer}
}

// MountRoutes registers the student endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// authorize runs the API guard and returns the caller's school.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, permission string) (string, bool) {
	if err := h.enforcer.AuthorizeRequest(r, rbac.RequirePermission(permission)); err != nil {
		httpx.RespondError(w, err)
		return "", false
	}
	p := rbac.PrincipalFromContext(r.Context())
	if p.TenantID == "" {
		h.logger.Warn("students: principal without school", slog.String("user", p.ID))
		httpx.RespondError(w, httpx.ErrForbidden)
		return "", false
	}
	return p.TenantID, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.authorize(w, r, shared.PermStudentsView)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	result, err := h.service.List(r.Context(), ListFilter{
		SchoolID: schoolID,
		ClassID:  q.Get("classId"),
		Search:   q.Get("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.fail(w, "list students", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.authorize(w, r, shared.PermStudentsView)
	if !ok {
		return
	}
	student, err := h.service.Get(r.Context(), schoolID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.authorize(w, r, shared.PermStudentsCreate)
	if !ok {
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	student, err := h.service.Create(r.Context(), schoolID, in)
	if err != nil {
		h.fail(w, "create student", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.authorize(w, r, shared.PermStudentsEdit)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	student, err := h.service.Update(r.Context(), schoolID, chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "update student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := h.authorize(w, r, shared.PermStudentsDelete)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), schoolID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Student deleted successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusOf(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
