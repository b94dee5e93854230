package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// DeniedHandler writes the response for a request blocked by the route guard.
// err is an *UnauthorizedError for denials and any other error when the
// check itself failed.
type DeniedHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware wires the route guard for chi routers.
type Middleware struct {
	Enforcer *Enforcer
	Logger   *slog.Logger
	// Denied renders blocked requests; DefaultDenied when nil.
	Denied DeniedHandler
}

// Require blocks requests whose principal does not satisfy req.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return m.RequireAny(req)
}

// RequirePermission guards on a catalog permission id.
func (m Middleware) RequirePermission(id string) func(http.Handler) http.Handler {
	return m.Require(RequirePermission(strings.TrimSpace(id)))
}

// RequireModule guards on access to module.
func (m Middleware) RequireModule(module string) func(http.Handler) http.Handler {
	return m.Require(RequireModule(module))
}

// RequireAction guards on action within module.
func (m Middleware) RequireAction(module, action string) func(http.Handler) http.Handler {
	return m.Require(RequireAction(module, action))
}

// RequireAuth only demands a signed-in principal.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return m.Require(Requirement{})
}

// RequireAny lets the request through when at least one requirement holds.
func (m Middleware) RequireAny(reqs ...Requirement) func(http.Handler) http.Handler {
	for _, req := range reqs {
		if err := req.Validate(); err != nil {
			panic(err)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			err := m.Enforcer.enforceAny(r.Context(), AdapterRoute, r.URL.Path, p, reqs...)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}
			if IsUnauthorized(err) && m.Logger != nil {
				m.Logger.Debug("rbac route denied", slog.String("path", r.URL.Path), slog.Any("denial", err))
			}
			denied := m.Denied
			if denied == nil {
				denied = DefaultDenied
			}
			denied(w, r, err)
		})
	}
}

// DefaultDenied answers 401 for anonymous requests, 403 for principals
// lacking the permission and 500 for failed checks.
func DefaultDenied(w http.ResponseWriter, r *http.Request, err error) {
	status, message := DeniedStatus(err)
	http.Error(w, message, status)
}

// DeniedStatus maps a guard error to an HTTP status and a user-facing message.
func DeniedStatus(err error) (int, string) {
	var ue *UnauthorizedError
	if errors.As(err, &ue) {
		if ue.Authenticated() {
			return http.StatusForbidden, "insufficient permission"
		}
		return http.StatusUnauthorized, "must be signed in"
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
