package view

import (
	"strings"

	"github.com/ecoly/ecoly/internal/rbac"
)

// NavItem is one entry of the application menu.
type NavItem struct {
	Title  string
	Href   string
	Module string
	Active bool
}

// menu lists every entry in display order. Entries without a module are
// shown to any signed-in user.
var menu = []NavItem{
	{Title: "Home", Href: "/"},
	{Title: "Classes", Href: "/classes", Module: rbac.ModuleClasses},
	{Title: "Students", Href: "/students", Module: rbac.ModuleStudents},
	{Title: "Teachers", Href: "/teachers", Module: rbac.ModuleTeachers},
	{Title: "Attendance", Href: "/attendance", Module: rbac.ModuleAttendance},
	{Title: "Grades", Href: "/grades", Module: rbac.ModuleGrades},
	{Title: "Observations", Href: "/observations", Module: rbac.ModuleObservations},
	{Title: "Subjects", Href: "/subjects", Module: rbac.ModuleSubjects},
	{Title: "Finance", Href: "/finance", Module: rbac.ModuleFinance},
	{Title: "Reports", Href: "/reports", Module: rbac.ModuleReports},
	{Title: "Permissions", Href: "/permissions", Module: rbac.ModuleSettings},
}

// Navigation returns the menu entries the gate's principal may open, with
// the entry matching currentPath marked active. A nil gate yields no entries.
func Navigation(gate *rbac.Gate, currentPath string) []NavItem {
	if gate.Principal() == nil {
		return nil
	}
	items := make([]NavItem, 0, len(menu))
	for _, item := range menu {
		if item.Module != "" && !gate.CanModule(item.Module) {
			continue
		}
		item.Active = isActive(item.Href, currentPath)
		items = append(items, item)
	}
	return items
}

func isActive(href, path string) bool {
	if href == "/" {
		return path == "/"
	}
	return path == href || strings.HasPrefix(path, href+"/")
}
