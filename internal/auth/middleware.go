package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
)

type bearerContextKey struct{}

// BearerAuthenticated reports whether the request principal came from an
// Authorization header rather than the session cookie.
func BearerAuthenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(bearerContextKey{}).(bool)
	return ok
}

// PrincipalLoader reloads the principal of an account by id. It fails with
// shared.ErrNotFound for missing or inactive accounts and rbac.ErrUnknownRole
// for stored roles outside the enumeration.
type PrincipalLoader interface {
	Lookup(ctx context.Context, id string) (*rbac.Principal, error)
}

// Middleware resolves the request principal from a bearer token or the
// session identity. With Principals set, the stored account is reloaded on
// every request and its role wins over token claims and session state.
type Middleware struct {
	Tokens     *Tokens
	Principals PrincipalLoader
	Logger     *slog.Logger
}

// Resolve stores the principal in the request context. Requests carrying
// an invalid bearer token, or a token for an inactive or missing account,
// are rejected with 401. Sessions in the same state are signed out.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if raw, ok := bearerToken(r); ok {
			if m.Tokens == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			claimed, err := m.Tokens.Parse(raw)
			if err != nil {
				m.logger().Debug("auth bearer rejected", slog.Any("error", err))
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			p, err := m.reload(ctx, claimed)
			if err != nil {
				if revoked(err) {
					m.logger().Info("auth bearer account revoked", slog.String("user", claimed.ID), slog.Any("error", err))
					httpx.RespondError(w, httpx.ErrUnauthorized)
					return
				}
				m.logger().Error("auth bearer lookup", slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			ctx = context.WithValue(ctx, bearerContextKey{}, true)
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(ctx, p)))
			return
		}

		sess := shared.SessionFromContext(ctx)
		if identity, ok := sess.Identity(); ok {
			p, err := m.sessionPrincipal(ctx, identity)
			switch {
			case err == nil:
				ctx = rbac.ContextWithPrincipal(ctx, p)
			case revoked(err):
				m.logger().Warn("auth session signed out", slog.String("user", identity.UserID), slog.String("role", identity.Role), slog.Any("error", err))
				sess.ClearIdentity()
			default:
				m.logger().Error("auth session lookup", slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) reload(ctx context.Context, claimed *rbac.Principal) (*rbac.Principal, error) {
	if m.Principals == nil {
		return claimed, nil
	}
	return m.Principals.Lookup(ctx, claimed.ID)
}

func (m Middleware) sessionPrincipal(ctx context.Context, identity shared.SessionIdentity) (*rbac.Principal, error) {
	role, err := rbac.ParseRole(identity.Role)
	if err != nil {
		return nil, err
	}
	return m.reload(ctx, &rbac.Principal{
		ID:       identity.UserID,
		Email:    identity.Email,
		Role:     role,
		TenantID: identity.SchoolID,
	})
}

func revoked(err error) bool {
	return errors.Is(err, shared.ErrNotFound) || errors.Is(err, rbac.ErrUnknownRole)
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
