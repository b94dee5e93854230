package rbac

import (
	"errors"
	"log/slog"

	"github.com/ecoly/ecoly/internal/platform/httpx"
)

var (
	// ErrUnknownRole indicates a role value outside the closed enumeration.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrUnknownPermission indicates a permission id missing from the catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrUnauthorized classifies a well-formed check that denied access.
	ErrUnauthorized = errors.New("rbac: unauthorized")
	// ErrInvalidCatalog indicates malformed or duplicated catalog entries.
	ErrInvalidCatalog = errors.New("rbac: invalid catalog")
	// ErrInvalidPolicy indicates a role policy table inconsistent with its catalog.
	ErrInvalidPolicy = errors.New("rbac: invalid policy")
	// ErrInvalidRequirement indicates a requirement with no usable selector shape.
	ErrInvalidRequirement = errors.New("rbac: invalid requirement")
)

// UnauthorizedError is returned by Authorize when access is denied. Its
// message is intentionally vague; the principal and requirement are kept
// for logging only.
type UnauthorizedError struct {
	Principal   *Principal
	Requirement Requirement
}

// Error implements the error interface.
func (e *UnauthorizedError) Error() string {
	if e.Authenticated() {
		return "rbac: insufficient permission"
	}
	return "rbac: must be signed in"
}

// Authenticated reports whether a principal was present when access was denied.
func (e *UnauthorizedError) Authenticated() bool {
	return e != nil && e.Principal != nil
}

// Unwrap exposes the classification so that errors.Is matches both
// ErrUnauthorized and the HTTP mapping used by httpx.RespondError.
func (e *UnauthorizedError) Unwrap() []error {
	if e.Authenticated() {
		return []error{ErrUnauthorized, httpx.ErrForbidden}
	}
	return []error{ErrUnauthorized, httpx.ErrUnauthorized}
}

// LogValue implements slog.LogValuer.
func (e *UnauthorizedError) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("requirement", e.Requirement.String())}
	if e.Principal != nil {
		attrs = append(attrs,
			slog.String("principal", e.Principal.ID),
			slog.String("role", string(e.Principal.Role)),
			slog.String("tenant", e.Principal.TenantID),
		)
	}
	return slog.GroupValue(attrs...)
}

// IsUnauthorized is a convenience wrapper around errors.Is(err, ErrUnauthorized).
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
