package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by services and handlers.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type errorMapping struct {
	err    error
	status int
	title  string
	// fixed replaces err.Error() as the detail when set.
	fixed string
}

// Access errors carry a fixed detail so denials never reveal what was checked.
var errorMappings = []errorMapping{
	{ErrNotFound, http.StatusNotFound, "Not Found", ""},
	{ErrDuplicate, http.StatusConflict, "Duplicate", ""},
	{ErrValidation, http.StatusBadRequest, "Validation Failed", ""},
	{ErrForbidden, http.StatusForbidden, "Forbidden", "insufficient permission"},
	{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized", "must be signed in"},
}

// StatusOf returns the HTTP status RespondError would use for err.
func StatusOf(err error) int {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// RespondError maps err onto a problem response. Unrecognised errors become
// a detail-free 500.
func RespondError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		detail := m.fixed
		if detail == "" {
			detail = err.Error()
		}
		Problem(w, m.status, m.title, detail)
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
