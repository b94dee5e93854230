package students

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoly/ecoly/internal/rbac"
)

func newTestRouter(t *testing.T, repo Repository, p *rbac.Principal) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ev, err := rbac.NewDefaultEvaluator()
	require.NoError(t, err)
	h := NewHandler(logger, NewService(repo, logger), rbac.NewEnforcer(ev, logger, nil))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if p != nil {
				req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), p))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/students", h.MountRoutes)
	return r
}

func as(role rbac.Role, school string) *rbac.Principal {
	return &rbac.Principal{ID: "user-" + string(role), Role: role, TenantID: school}
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestListRequiresSignIn(t *testing.T) {
	rr := serve(newTestRouter(t, newMemoryRepo(), nil), http.MethodGet, "/api/students", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestParentCanListButNotCreate(t *testing.T) {
	repo := newMemoryRepo(seedStudent(schoolA, "Awa", "Sy", 0), seedStudent(schoolB, "Hidden", "Kid", 0))
	router := newTestRouter(t, repo, as(rbac.RoleParent, schoolA))

	rr := serve(router, http.MethodGet, "/api/students?page=1&limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body ListResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Students, 1)
	assert.Equal(t, "Awa", body.Students[0].FirstName)
	assert.Equal(t, 5, body.Pagination.Limit)

	rr = serve(router, http.MethodPost, "/api/students", `{"firstName":"New","lastName":"Kid"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.NotContains(t, rr.Body.String(), "students.create")
}

func TestSecretaryCreatesAndEditsButCannotDelete(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo, as(rbac.RoleSecretary, schoolA))

	rr := serve(router, http.MethodPost, "/api/students", `{"firstName":"Moussa","lastName":"Fall","gender":"MALE","dateOfBirth":"2014-02-11"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Student
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, schoolA, created.SchoolID)
	assert.Regexp(t, `^\d{4}-[0-9a-f]{8}$`, created.StudentNumber)

	rr = serve(router, http.MethodPatch, "/api/students/"+created.ID, `{"lastName":"Faye"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"lastName":"Faye"`)

	rr = serve(router, http.MethodDelete, "/api/students/"+created.ID, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.True(t, repo.students[created.ID].IsActive)
}

func TestDirectorDeletesStudent(t *testing.T) {
	s := seedStudent(schoolA, "Binta", "Diop", time.Hour)
	repo := newMemoryRepo(s)
	router := newTestRouter(t, repo, as(rbac.RoleDirector, schoolA))

	rr := serve(router, http.MethodDelete, "/api/students/"+s.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, repo.students[s.ID].IsActive)

	rr = serve(router, http.MethodGet, "/api/students/"+s.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	other := newTestRouter(t, repo, as(rbac.RoleDirector, schoolB))
	rr = serve(other, http.MethodGet, "/api/students/"+s.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo(), as(rbac.RoleDirector, schoolA))
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/api/students", `{"firstName":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/api/students", `not json`).Code)
}

func TestPrincipalWithoutSchoolIsForbidden(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo(), as(rbac.RoleDirector, ""))
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/students", "").Code)
}
