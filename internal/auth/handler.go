package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
	"github.com/ecoly/ecoly/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	tokens         *Tokens
	pages          view.Pages
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, tokens *Tokens, pages view.Pages, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		tokens:         tokens,
		pages:          pages,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/token", h.issueToken)
	r.Get("/validate", h.validate)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginPageData struct {
	Email  string
	Next   string
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if rbac.PrincipalFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := loginPageData{Next: safeNext(r.URL.Query().Get("next")), Errors: map[string]string{}}
	h.pages.Render(w, r, http.StatusOK, "login.html", "Sign in", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"))
	errs := h.validateForm(form)

	if len(errs) == 0 {
		principal, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		switch {
		case err == nil && sess != nil:
			if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
				h.logger.Error("renew session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sess.Delete(shared.CSRFSessionKey)
			sess.SetIdentity(shared.SessionIdentity{
				UserID:   principal.ID,
				Email:    principal.Email,
				Role:     string(principal.Role),
				SchoolID: principal.TenantID,
			})
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
			h.logger.Info("user signed in", slog.String("user", principal.ID), slog.String("role", string(principal.Role)))
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		case err == nil:
			h.logger.Error("session missing during login")
			errs["general"] = "Sign in is temporarily unavailable"
		case errors.Is(err, rbac.ErrUnknownRole):
			errs["general"] = "Your account has no valid role, contact the school office"
		default:
			errs["general"] = "Invalid email or password"
		}
	}

	data := loginPageData{Email: form.Email, Next: next, Errors: errs}
	h.pages.Render(w, r, http.StatusBadRequest, "login.html", "Sign in", data)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if p := rbac.PrincipalFromContext(r.Context()); p != nil {
			h.logger.Info("user signed out", slog.String("user", p.ID))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserInfo  `json:"user"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	form.Email = strings.TrimSpace(form.Email)
	if errs := h.validateForm(form); len(errs) > 0 {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{"title": "Validation Failed", "status": http.StatusBadRequest, "errors": errs})
		return
	}
	principal, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, rbac.ErrUnknownRole) {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	token, expires, err := h.tokens.Issue(principal)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires, User: userInfo(principal)})
}

type validateResponse struct {
	Valid bool     `json:"valid"`
	User  UserInfo `json:"user"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	// The stored account wins over token claims.
	current, err := h.service.Lookup(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, rbac.ErrUnknownRole) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("validate lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, validateResponse{Valid: true, User: userInfo(current)})
}

func (h *Handler) validateForm(form loginForm) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[strings.ToLower(fieldErr.Field())] = fieldMessage(fieldErr)
			}
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	}
	return fe.Error()
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
