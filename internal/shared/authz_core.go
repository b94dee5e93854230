package shared

import "slices"

// Administration permissions.
const (
	PermSettingsView   = "settings.view"
	PermSettingsManage = "settings.manage"

	PermUsersManage = "users.manage"

	PermReportsView   = "reports.view"
	PermReportsExport = "reports.export"
)

// CoreScopes lists the administration and reporting permissions.
func CoreScopes() []string {
	return []string{
		PermSettingsView,
		PermSettingsManage,
		PermUsersManage,
		PermReportsView,
		PermReportsExport,
	}
}

// DeclaredScopes lists every permission id declared in this package.
func DeclaredScopes() []string {
	return slices.Concat(AcademicScopes(), RecordScopes(), FinanceScopes(), CoreScopes())
}
