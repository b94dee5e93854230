package rbac

import (
	"fmt"
	"strings"
)

// Permission is an immutable catalog entry. ID has the form "<module>.<action>".
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Module      string `json:"module"`
}

// Action returns the part of the id after the module prefix.
func (p Permission) Action() string {
	return strings.TrimPrefix(p.ID, p.Module+".")
}

// Catalog is the registry of every permission known to the application.
// A Catalog never changes once built; Extend returns a new one.
type Catalog struct {
	perms   []Permission
	index   map[string]int
	modules []string
}

// NewCatalog validates perms and builds a Catalog preserving declaration
// order. An empty Module is derived from the id prefix.
func NewCatalog(perms ...Permission) (*Catalog, error) {
	c := &Catalog{
		perms: make([]Permission, 0, len(perms)),
		index: make(map[string]int, len(perms)),
	}
	seenModules := make(map[string]struct{})
	for _, p := range perms {
		p, err := normalizePermission(p)
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate permission %q", ErrInvalidCatalog, p.ID)
		}
		c.index[p.ID] = len(c.perms)
		c.perms = append(c.perms, p)
		if _, ok := seenModules[p.Module]; !ok {
			seenModules[p.Module] = struct{}{}
			c.modules = append(c.modules, p.Module)
		}
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid input.
func MustCatalog(perms ...Permission) *Catalog {
	c, err := NewCatalog(perms...)
	if err != nil {
		panic(err)
	}
	return c
}

// Extend returns a new catalog holding the receiver's permissions followed by perms.
func (c *Catalog) Extend(perms ...Permission) (*Catalog, error) {
	all := make([]Permission, 0, len(c.perms)+len(perms))
	all = append(all, c.perms...)
	all = append(all, perms...)
	return NewCatalog(all...)
}

// List returns every permission in declaration order.
func (c *Catalog) List() []Permission {
	out := make([]Permission, len(c.perms))
	copy(out, c.perms)
	return out
}

// Exists reports whether id is registered.
func (c *Catalog) Exists(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Lookup returns the permission registered under id.
func (c *Catalog) Lookup(id string) (Permission, bool) {
	i, ok := c.index[id]
	if !ok {
		return Permission{}, false
	}
	return c.perms[i], true
}

// Modules returns the distinct modules in order of first appearance.
func (c *Catalog) Modules() []string {
	out := make([]string, len(c.modules))
	copy(out, c.modules)
	return out
}

// Len returns the number of registered permissions.
func (c *Catalog) Len() int {
	return len(c.perms)
}

// PermissionID composes the catalog key for an action on a module.
func PermissionID(module, action string) string {
	return module + "." + action
}

func normalizePermission(p Permission) (Permission, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Module = strings.TrimSpace(p.Module)
	module, action, ok := strings.Cut(p.ID, ".")
	if !ok || module == "" || action == "" {
		return Permission{}, fmt.Errorf("%w: permission id %q must look like <module>.<action>", ErrInvalidCatalog, p.ID)
	}
	if strings.ToLower(p.ID) != p.ID || strings.ContainsAny(p.ID, " \t") {
		return Permission{}, fmt.Errorf("%w: permission id %q must be lower case without spaces", ErrInvalidCatalog, p.ID)
	}
	if p.Module == "" {
		p.Module = module
	}
	if p.Module != module {
		return Permission{}, fmt.Errorf("%w: permission %q declares module %q", ErrInvalidCatalog, p.ID, p.Module)
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	return p, nil
}
