package view

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
)

// Pages builds the per-request TemplateData for HTML handlers.
type Pages struct {
	Engine   *Engine
	Enforcer *rbac.Enforcer
	CSRF     *shared.CSRFManager
	Logger   *slog.Logger
}

// Data assembles the shared template values for r: CSRF token, pending
// flash, the signed-in principal with its gate and the filtered menu.
func (p Pages) Data(r *http.Request, title string, data any) TemplateData {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	var token string
	if p.CSRF != nil && sess != nil {
		token, _ = p.CSRF.EnsureToken(ctx, sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	principal := rbac.PrincipalFromContext(ctx)
	var gate *rbac.Gate
	if p.Enforcer != nil {
		gate = p.Enforcer.Gate(ctx, principal)
	}
	return TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   principal,
		Gate:        gate,
		Nav:         Navigation(gate, r.URL.Path),
		Data:        data,
	}
}

// Render writes the named page with status, logging template failures.
func (p Pages) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := p.Engine.RenderStatus(w, status, name, p.Data(r, title, data)); err != nil {
		p.logger().Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Denied renders the access denied page for route guard failures. Anonymous
// visitors are sent to the login page instead.
func (p Pages) Denied(w http.ResponseWriter, r *http.Request, err error) {
	status, message := rbac.DeniedStatus(err)
	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/auth/login?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
		return
	}
	p.Render(w, r, status, "denied.html", "Access denied", map[string]any{"Message": message})
}

func (p Pages) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
