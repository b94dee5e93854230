package rbac

import (
	"fmt"
)

// Grant describes the permissions a role holds: either an explicit list of
// catalog ids or every permission in the catalog.
type Grant struct {
	all bool
	ids []string
}

// AllPermissions grants the whole catalog, whatever it contains when the
// policy table is built.
func AllPermissions() Grant {
	return Grant{all: true}
}

// Permissions grants exactly the listed permission ids.
func Permissions(ids ...string) Grant {
	out := make([]string, len(ids))
	copy(out, ids)
	return Grant{ids: out}
}

// IsAll reports whether g is the whole-catalog grant.
func (g Grant) IsAll() bool {
	return g.all
}

type roleGrant struct {
	perms   []Permission
	ids     map[string]struct{}
	modules map[string]struct{}
}

// PolicyTable maps every role to its resolved permission set. It is built
// once, validated against its catalog, and read-only afterwards.
type PolicyTable struct {
	catalog *Catalog
	roles   map[Role]roleGrant
}

// NewPolicyTable resolves grants against catalog. Every role of the
// enumeration must be present, every explicit id must exist in the catalog,
// and the director must hold the whole-catalog grant.
func NewPolicyTable(catalog *Catalog, grants map[Role]Grant) (*PolicyTable, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog required", ErrInvalidPolicy)
	}
	for role := range grants {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: grant for unknown role %q", ErrInvalidPolicy, role)
		}
	}
	t := &PolicyTable{catalog: catalog, roles: make(map[Role]roleGrant, len(grants))}
	for _, role := range Roles() {
		grant, ok := grants[role]
		if !ok {
			return nil, fmt.Errorf("%w: no grant for role %s", ErrInvalidPolicy, role)
		}
		if role == RoleDirector && !grant.all {
			return nil, fmt.Errorf("%w: %s must hold every permission", ErrInvalidPolicy, role)
		}
		resolved, err := resolveGrant(catalog, role, grant)
		if err != nil {
			return nil, err
		}
		t.roles[role] = resolved
	}
	return t, nil
}

// MustPolicyTable is like NewPolicyTable but panics on an inconsistent table.
func MustPolicyTable(catalog *Catalog, grants map[Role]Grant) *PolicyTable {
	t, err := NewPolicyTable(catalog, grants)
	if err != nil {
		panic(err)
	}
	return t
}

// Catalog returns the catalog the table was validated against.
func (t *PolicyTable) Catalog() *Catalog {
	return t.catalog
}

// PermissionsFor returns the permissions held by role in catalog order.
func (t *PolicyTable) PermissionsFor(role Role) ([]Permission, error) {
	g, err := t.grant(role)
	if err != nil {
		return nil, err
	}
	out := make([]Permission, len(g.perms))
	copy(out, g.perms)
	return out, nil
}

func (t *PolicyTable) grant(role Role) (roleGrant, error) {
	g, ok := t.roles[role]
	if !ok {
		return roleGrant{}, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	return g, nil
}

func resolveGrant(catalog *Catalog, role Role, grant Grant) (roleGrant, error) {
	g := roleGrant{ids: make(map[string]struct{}), modules: make(map[string]struct{})}
	if grant.all {
		for _, p := range catalog.List() {
			g.add(p)
		}
		return g, nil
	}
	for _, id := range grant.ids {
		_, ok := catalog.Lookup(id)
		if !ok {
			return roleGrant{}, fmt.Errorf("%w: role %s references unknown permission %q", ErrInvalidPolicy, role, id)
		}
		if _, dup := g.ids[id]; dup {
			return roleGrant{}, fmt.Errorf("%w: role %s lists %q twice", ErrInvalidPolicy, role, id)
		}
		g.ids[id] = struct{}{}
	}
	// Keep catalog order regardless of how the grant was written.
	for _, p := range catalog.List() {
		if _, ok := g.ids[p.ID]; ok {
			g.perms = append(g.perms, p)
			g.modules[p.Module] = struct{}{}
		}
	}
	return g, nil
}

func (g *roleGrant) add(p Permission) {
	g.perms = append(g.perms, p)
	g.ids[p.ID] = struct{}{}
	g.modules[p.Module] = struct{}{}
}
