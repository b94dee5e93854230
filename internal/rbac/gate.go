package rbac

import (
	"context"
	"html/template"
)

// Gate answers conditional rendering questions for one principal. A nil
// Gate denies every element; a Gate without a principal only passes
// anonymous requirements. Evaluation errors are logged by the Enforcer and
// render the fallback.
type Gate struct {
	ctx       context.Context
	enforcer  *Enforcer
	principal *Principal
}

// Allows reports whether req is satisfied.
func (g *Gate) Allows(req Requirement) bool {
	if g == nil || g.enforcer == nil {
		return false
	}
	return g.enforcer.enforce(g.context(), AdapterUI, "", g.principal, req) == nil
}

// Can checks a catalog permission id.
func (g *Gate) Can(permission string) bool {
	return g.Allows(RequirePermission(permission))
}

// CanModule checks access to module.
func (g *Gate) CanModule(module string) bool {
	return g.Allows(RequireModule(module))
}

// CanPerform checks action on module.
func (g *Gate) CanPerform(action, module string) bool {
	return g.Allows(RequireAction(module, action))
}

// Render returns content when req is satisfied, otherwise the optional
// fallback (nothing by default).
func (g *Gate) Render(req Requirement, content template.HTML, fallback ...template.HTML) template.HTML {
	if g.Allows(req) {
		return content
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

// Principal returns the principal the gate is bound to.
func (g *Gate) Principal() *Principal {
	if g == nil {
		return nil
	}
	return g.principal
}

func (g *Gate) context() context.Context {
	if g.ctx == nil {
		return context.Background()
	}
	return g.ctx
}
