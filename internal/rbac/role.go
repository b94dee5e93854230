package rbac

import (
	"fmt"
	"strings"
)

// Role is the closed set of school roles carried by a principal.
type Role string

const (
	RoleDirector  Role = "DIRECTOR"
	RoleSecretary Role = "SECRETARY"
	RoleTeacher   Role = "TEACHER"
	RoleParent    Role = "PARENT"
)

var roleLabels = map[Role]string{
	RoleDirector:  "Director",
	RoleSecretary: "Secretary",
	RoleTeacher:   "Teacher",
	RoleParent:    "Parent",
}

// Roles returns every role in display order.
func Roles() []Role {
	return []Role{RoleDirector, RoleSecretary, RoleTeacher, RoleParent}
}

// ParseRole converts a stored or transmitted value into a Role. It is the
// single runtime boundary where an invalid role can appear.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
	return role, nil
}

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label returns a human readable name.
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

func (r Role) String() string {
	return string(r)
}
