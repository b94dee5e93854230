package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorStatuses(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("student: %w", ErrNotFound):   http.StatusNotFound,
		fmt.Errorf("student: %w", ErrDuplicate):  http.StatusConflict,
		fmt.Errorf("student: %w", ErrValidation): http.StatusBadRequest,
		ErrForbidden:                             http.StatusForbidden,
		ErrUnauthorized:                          http.StatusUnauthorized,
		errors.New("db down"):                    http.StatusInternalServerError,
	}
	for err, status := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, err)
		assert.Equal(t, status, rr.Code, err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
		assert.Equal(t, status, problem.Status)
		assert.Equal(t, "about:blank", problem.Type)
	}
}

func TestInternalErrorsHideDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: password authentication failed"))
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada"}`))
	var body struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "Ada", body.Name)
}

func TestDecodeJSONRejects(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"broken":   `{"name":`,
		"trailing": `{"name":"Ada"} {"name":"Bob"}`,
		"oversize": `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			var target struct {
				Name string `json:"name"`
			}
			require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)
		})
	}
}
