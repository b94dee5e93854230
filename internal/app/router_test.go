package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoly/ecoly/internal/auth"
	"github.com/ecoly/ecoly/internal/observability"
	"github.com/ecoly/ecoly/internal/shared"
	"github.com/ecoly/ecoly/jobs"
	_ "github.com/ecoly/ecoly/testing"
)

type memoryUsers map[string]*auth.User

func (m memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if u, ok := m[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (m memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	for _, u := range m {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m memoryUsers) TouchLastLogin(context.Context, string, time.Time) error {
	return nil
}

type countingEnqueuer struct {
	types []string
}

func (c *countingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.types = append(c.types, task.Type())
	return &asynq.TaskInfo{}, nil
}

type testApp struct {
	handler  http.Handler
	users    memoryUsers
	enqueuer *countingEnqueuer
	metrics  *observability.Metrics
}

func testConfig() *Config {
	return &Config{
		AppEnv:             "test",
		AppRequestTimeout:  5 * time.Second,
		SessionSecret:      "session-secret",
		SessionTTL:         time.Hour,
		CSRFSecret:         "csrf-secret",
		JWTSecret:          strings.Repeat("k", 32),
		JWTIssuer:          "ecoly",
		JWTTTL:             time.Hour,
		RateLimitPerMinute: 1000,
		AuditRetention:     24 * time.Hour,
	}
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := auth.HashPassword("correctpass")
	require.NoError(t, err)
	users := memoryUsers{
		"teacher@school.test": {ID: "u-teacher", Email: "teacher@school.test", PasswordHash: hash, Role: "TEACHER", SchoolID: "school-1", IsActive: true},
	}
	enq := &countingEnqueuer{}
	metrics := observability.NewMetrics()
	application, err := NewApplication(Dependencies{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:   testConfig(),
		Redis:    client,
		Metrics:  metrics,
		Users:    users,
		Enqueuer: enq,
	})
	require.NoError(t, err)
	return testApp{handler: application.Handler, users: users, enqueuer: enq, metrics: metrics}
}

func (a testApp) do(req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = "192.0.2.10:40000"
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// signIn walks the login form and returns the authenticated session cookie.
func (a testApp) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	page := a.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusOK, page.Code)
	match := csrfField.FindStringSubmatch(page.Body.String())
	require.Len(t, match, 2)
	cookie := cookieNamed(page, "ecoly_session")
	require.NotNil(t, cookie)

	form := url.Values{"email": {"teacher@school.test"}, "password": {"correctpass"}, "csrf_token": {match[1]}, "next": {"/grades"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rr := a.do(req)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/grades", rr.Header().Get("Location"))
	signedIn := cookieNamed(rr, "ecoly_session")
	require.NotNil(t, signedIn)
	return signedIn
}

func TestHealthzAndStatic(t *testing.T) {
	a := newTestApp(t)
	rr := a.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = a.do(httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestAnonymousHomeRedirectsToLogin(t *testing.T) {
	a := newTestApp(t)
	rr := a.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login?next=%2F", rr.Header().Get("Location"))
	assert.Equal(t, []string{jobs.TaskAuthzDenial}, a.enqueuer.types)
}

func TestSessionFlowEnforcesRoutes(t *testing.T) {
	a := newTestApp(t)
	cookie := a.signIn(t)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(cookie)
		return a.do(req)
	}

	rr := get("/grades")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Record grades")
	assert.NotContains(t, rr.Body.String(), `href="/finance"`)

	assert.Equal(t, http.StatusForbidden, get("/finance").Code)
	assert.Equal(t, http.StatusForbidden, get("/permissions").Code)
	assert.Equal(t, http.StatusOK, get("/auth/validate").Code)
	assert.Contains(t, a.enqueuer.types, jobs.TaskAuthzDenial)
}

func TestCSRFRequiredForSessionPosts(t *testing.T) {
	a := newTestApp(t)
	cookie := a.signIn(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	assert.Equal(t, http.StatusForbidden, a.do(req).Code)
}

func TestBearerFlowSkipsCSRF(t *testing.T) {
	a := newTestApp(t)
	rr := a.do(httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"email":"teacher@school.test","password":"correctpass"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))

	req := httptest.NewRequest(http.MethodGet, "/api/permissions/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rr = a.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"TEACHER"`)

	req = httptest.NewRequest(http.MethodGet, "/api/permissions/roles/PARENT", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	assert.Equal(t, http.StatusForbidden, a.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/permissions/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, a.do(req).Code)
}

func TestBearerRejectedAfterAccountDeactivated(t *testing.T) {
	a := newTestApp(t)
	rr := a.do(httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"email":"teacher@school.test","password":"correctpass"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))

	me := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/permissions/me", nil)
		req.Header.Set("Authorization", "Bearer "+body.Token)
		return a.do(req)
	}

	a.users["teacher@school.test"].Role = "PARENT"
	rr = me()
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"PARENT"`)

	a.users["teacher@school.test"].IsActive = false
	assert.Equal(t, http.StatusUnauthorized, me().Code)
}

func TestMetricsEndpointCountsDecisions(t *testing.T) {
	a := newTestApp(t)
	a.do(httptest.NewRequest(http.MethodGet, "/", nil))

	rr := a.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `ecoly_authz_decisions_total{adapter="route",outcome="unauthenticated"} 1`)
}

func TestNewApplicationRequiresConfig(t *testing.T) {
	_, err := NewApplication(Dependencies{})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.AuditRetention = time.Minute
	assert.Error(t, cfg.Validate())
}
