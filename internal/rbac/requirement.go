package rbac

import (
	"fmt"
	"strings"
)

// Requirement selects which question an enforcement point asks. Exactly one
// shape is expected: a permission id, a module, or a module with an action.
// The zero value only requires a signed-in principal.
type Requirement struct {
	Permission string
	Module     string
	Action     string
	// AllowAnonymous lets requests without a principal through.
	AllowAnonymous bool
}

// RequirePermission builds a requirement on a catalog permission id.
func RequirePermission(id string) Requirement {
	return Requirement{Permission: id}
}

// RequireModule builds a requirement on any access to module.
func RequireModule(module string) Requirement {
	return Requirement{Module: module}
}

// RequireAction builds a requirement on action within module.
func RequireAction(module, action string) Requirement {
	return Requirement{Module: module, Action: action}
}

// Anonymous returns a copy of r that does not demand a principal.
func (r Requirement) Anonymous() Requirement {
	r.AllowAnonymous = true
	return r
}

// IsZero reports whether r asks no permission question.
func (r Requirement) IsZero() bool {
	return r.Permission == "" && r.Module == "" && r.Action == ""
}

// Validate rejects an action given without its module.
func (r Requirement) Validate() error {
	if r.Permission == "" && r.Module == "" && r.Action != "" {
		return fmt.Errorf("%w: action %q without module", ErrInvalidRequirement, r.Action)
	}
	return nil
}

// Evaluate answers r for role. The permission id is checked strictly, the
// module+action pair leniently; see Evaluator.
func (r Requirement) Evaluate(e *Evaluator, role Role) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	switch {
	case r.Permission != "":
		return e.HasPermission(role, r.Permission)
	case r.Module != "" && r.Action == "":
		return e.HasModuleAccess(role, r.Module)
	case r.Module != "":
		if !role.Valid() {
			return false, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
		}
		return e.CanPerform(role, r.Action, r.Module), nil
	}
	return true, nil
}

func (r Requirement) String() string {
	var b strings.Builder
	switch {
	case r.Permission != "":
		b.WriteString("permission:" + r.Permission)
	case r.Module != "" && r.Action == "":
		b.WriteString("module:" + r.Module)
	case r.Module != "":
		b.WriteString("action:" + PermissionID(r.Module, r.Action))
	default:
		b.WriteString("authenticated")
	}
	if r.AllowAnonymous {
		b.WriteString(" (anonymous allowed)")
	}
	return b.String()
}
