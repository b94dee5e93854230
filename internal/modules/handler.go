// Package modules serves the school module pages. Every page sits behind
// the route guard for its module; action buttons are gated per principal.
package modules

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/view"
)

// Module describes one school module page.
type Module struct {
	Name        string
	Title       string
	Description string
	Actions     []Action
}

// Action is a button on a module page, shown when the principal may
// perform Action on the module.
type Action struct {
	Action string
	Label  string
	Href   string
}

// pageData feeds module.html.
type pageData struct {
	Module      string
	Description string
	Form        bool
	Actions     []Action
}

// Defaults lists the module pages in menu order.
func Defaults() []Module {
	return []Module{
		{Name: rbac.ModuleClasses, Title: "Classes", Description: "Classes of the school and their levels.", Actions: []Action{
			{Action: rbac.ActionCreate, Label: "New class", Href: "/classes/new"},
		}},
		{Name: rbac.ModuleStudents, Title: "Students", Description: "Enrolled students.", Actions: []Action{
			{Action: rbac.ActionCreate, Label: "Enrol student", Href: "/students/new"},
		}},
		{Name: rbac.ModuleTeachers, Title: "Teachers", Description: "Teaching staff.", Actions: []Action{
			{Action: rbac.ActionCreate, Label: "Add teacher", Href: "/teachers/new"},
		}},
		{Name: rbac.ModuleAttendance, Title: "Attendance", Description: "Daily attendance registers.", Actions: []Action{
			{Action: rbac.ActionManage, Label: "Take attendance", Href: "/attendance/new"},
		}},
		{Name: rbac.ModuleGrades, Title: "Grades", Description: "Marks per subject and term.", Actions: []Action{
			{Action: rbac.ActionCreate, Label: "Record grades", Href: "/grades/new"},
		}},
		{Name: rbac.ModuleObservations, Title: "Observations", Description: "Behaviour and progress notes.", Actions: []Action{
			{Action: rbac.ActionCreate, Label: "New observation", Href: "/observations/new"},
		}},
		{Name: rbac.ModuleSubjects, Title: "Subjects", Description: "Subjects taught in the school.", Actions: []Action{
			{Action: rbac.ActionCreate, Label: "New subject", Href: "/subjects/new"},
		}},
		{Name: rbac.ModuleFinance, Title: "Finance", Description: "Fees, payments and billing.", Actions: []Action{
			{Action: rbac.ActionManage, Label: "Record payment", Href: "/finance/new"},
		}},
		{Name: rbac.ModuleReports, Title: "Reports", Description: "School statistics.", Actions: []Action{
			{Action: rbac.ActionExport, Label: "Export", Href: "/reports/new"},
		}},
	}
}

// Handler renders the home page and module pages.
type Handler struct {
	pages   view.Pages
	guard   rbac.Middleware
	modules []Module
}

// NewHandler builds Handler instance.
func NewHandler(pages view.Pages, guard rbac.Middleware, modules []Module) *Handler {
	return &Handler{pages: pages, guard: guard, modules: modules}
}

// MountRoutes registers "/" and one route group per module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireAuth()).Get("/", h.home)
	for _, m := range h.modules {
		r.Route("/"+m.Name, func(r chi.Router) {
			r.Use(h.guard.RequireModule(m.Name))
			r.Get("/", h.index(m))
			if len(m.Actions) > 0 {
				primary := m.Actions[0]
				r.With(h.guard.RequireAction(m.Name, primary.Action)).Get("/new", h.form(m))
			}
		})
	}
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "home.html", "Home", nil)
}

func (h *Handler) index(m Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pages.Render(w, r, http.StatusOK, "module.html", m.Title, pageData{
			Module:      m.Name,
			Description: m.Description,
			Actions:     m.Actions,
		})
	}
}

func (h *Handler) form(m Module) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pages.Render(w, r, http.StatusOK, "module.html", m.Actions[0].Label, pageData{
			Module: m.Name,
			Form:   true,
		})
	}
}
