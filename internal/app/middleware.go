package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/ecoly/ecoly/internal/auth"
	"github.com/ecoly/ecoly/internal/observability"
	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/shared"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRatePerMinute  = 60
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Auth           auth.Middleware
	Metrics        *observability.Metrics
}

// csrfExemptPaths accept credentials in the request body and carry no
// ambient cookie authority.
var csrfExemptPaths = map[string]bool{
	"/auth/token": true,
}

// MiddlewareStack returns the chain applied to every application route, in
// order: metrics, request plumbing, security headers, rate limiting, session,
// principal resolution, CSRF.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	var chain []func(http.Handler) http.Handler
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	return append(chain,
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(cfg.requestTimeout()),
		securityHeaders(cfg),
		middleware.Compress(5),
		rateLimit(cfg),
		sessionScope(cfg),
		cfg.Auth.Resolve,
		csrfProtect(cfg),
	)
}

func (cfg MiddlewareConfig) requestTimeout() time.Duration {
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		return cfg.Config.AppRequestTimeout
	}
	return defaultRequestTimeout
}

func (cfg MiddlewareConfig) ratePerMinute() int {
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		return cfg.Config.RateLimitPerMinute
	}
	return defaultRatePerMinute
}

func securityHeaders(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	production := cfg.Config.IsProduction()
	headers := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(production),
		STSIncludeSubdomains:  production,
		IsDevelopment:         !production,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Process has already written the redirect or rejection on error.
			if err := headers.Process(w, r); err != nil {
				cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stsSeconds(production bool) int64 {
	if production {
		return 31536000
	}
	return 0
}

func rateLimit(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return httprate.Limit(cfg.ratePerMinute(), time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			cfg.Logger.Warn("rate limited", slog.String("path", r.URL.Path))
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "")
		}),
	)
}

// sessionScope loads the session before the handler runs and commits it just
// before the first byte of the response, or after the handler when nothing
// was written.
func sessionScope(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := cfg.SessionManager.Load(r.Context(), r)
			if err != nil {
				cfg.Logger.Error("load session", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			cw := &committingWriter{ResponseWriter: w, commit: func() {
				if err := cfg.SessionManager.Commit(r.Context(), w, r, sess); err != nil {
					cfg.Logger.Error("commit session", slog.Any("error", err))
				}
			}}
			next.ServeHTTP(cw, r)
			cw.flushCommit()
		})
	}
}

func csrfProtect(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions,
				auth.BearerAuthenticated(r.Context()),
				csrfExemptPaths[r.URL.Path]:
				next.ServeHTTP(w, r)
				return
			}
			sess := shared.SessionFromContext(r.Context())
			if err := cfg.CSRFManager.VerifyToken(r.Context(), sess, shared.CSRFTokenFromRequest(r)); err != nil {
				cfg.Logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// committingWriter runs commit once, before the status line is written.
type committingWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *committingWriter) flushCommit() {
	if w.committed {
		return
	}
	w.committed = true
	w.commit()
}

func (w *committingWriter) WriteHeader(status int) {
	w.flushCommit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *committingWriter) Write(b []byte) (int, error) {
	w.flushCommit()
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *committingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
