package rbac

import "fmt"

// Evaluator answers access questions against a PolicyTable. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	table *PolicyTable
}

// NewEvaluator wraps a validated policy table.
func NewEvaluator(table *PolicyTable) *Evaluator {
	return &Evaluator{table: table}
}

// Catalog returns the catalog backing the evaluator.
func (e *Evaluator) Catalog() *Catalog {
	return e.table.catalog
}

// ListPermissions returns every permission in the catalog.
func (e *Evaluator) ListPermissions() []Permission {
	return e.table.catalog.List()
}

// RolePermissions returns the permissions granted to role.
func (e *Evaluator) RolePermissions(role Role) ([]Permission, error) {
	return e.table.PermissionsFor(role)
}

// RoleModules returns the modules role can access, in catalog order.
func (e *Evaluator) RoleModules(role Role) ([]string, error) {
	g, err := e.table.grant(role)
	if err != nil {
		return nil, err
	}
	var modules []string
	for _, m := range e.table.catalog.Modules() {
		if _, ok := g.modules[m]; ok {
			modules = append(modules, m)
		}
	}
	return modules, nil
}

// HasPermission reports whether role holds permissionID. Ids missing from
// the catalog are reported as ErrUnknownPermission rather than a denial.
func (e *Evaluator) HasPermission(role Role, permissionID string) (bool, error) {
	g, err := e.table.grant(role)
	if err != nil {
		return false, err
	}
	if !e.table.catalog.Exists(permissionID) {
		return false, fmt.Errorf("%w: %q", ErrUnknownPermission, permissionID)
	}
	_, ok := g.ids[permissionID]
	return ok, nil
}

// HasModuleAccess reports whether role holds at least one permission of module.
func (e *Evaluator) HasModuleAccess(role Role, module string) (bool, error) {
	g, err := e.table.grant(role)
	if err != nil {
		return false, err
	}
	_, ok := g.modules[module]
	return ok, nil
}

// CanPerform reports whether role may perform action on module. Unlike
// HasPermission it never fails: unknown roles and unregistered
// module/action pairs are simply not allowed.
func (e *Evaluator) CanPerform(role Role, action, module string) bool {
	if action == "" || module == "" {
		return false
	}
	g, err := e.table.grant(role)
	if err != nil {
		return false
	}
	_, ok := g.ids[PermissionID(module, action)]
	return ok
}
