package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoly/ecoly/internal/platform/httpx"
	"github.com/ecoly/ecoly/internal/shared"
)

func stackHandler(t *testing.T, cfg *Config, h http.Handler) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var handler http.Handler = h
	stack := MiddlewareStack(MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:         cfg,
		SessionManager: shared.NewSessionManager(client, "ecoly_session", "session-secret", time.Hour, false),
		CSRFManager:    shared.NewCSRFManager("csrf-secret"),
	})
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}
	return handler, mr
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = "198.51.100.7:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestStackSetsSecurityHeaders(t *testing.T) {
	h, _ := stackHandler(t, testConfig(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestStackCommitsSessionWhenHandlerWritesNothing(t *testing.T) {
	h, mr := stackHandler(t, testConfig(), http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		shared.SessionFromContext(r.Context()).Set("seen", "1")
	}))
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "ecoly_session", cookies[0].Name)
	assert.Len(t, mr.Keys(), 1)
}

func TestStackRateLimitsPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	h, _ := stackHandler(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusNoContent, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
	assert.Equal(t, http.StatusTooManyRequests, problem.Status)
}

func TestStackRejectsPostWithoutCSRF(t *testing.T) {
	h, _ := stackHandler(t, testConfig(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	assert.Equal(t, http.StatusForbidden, serve(h, httptest.NewRequest(http.MethodPost, "/students", nil)).Code)
	assert.Equal(t, http.StatusNoContent, serve(h, httptest.NewRequest(http.MethodPost, "/auth/token", nil)).Code)
}
