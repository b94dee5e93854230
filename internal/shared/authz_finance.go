package shared

// Finance permissions declared for RBAC.
const (
	PermFinanceView   = "finance.view"
	PermFinanceManage = "finance.manage"
)

// FinanceScopes lists all permissions related to the finance module.
func FinanceScopes() []string {
	return []string{
		PermFinanceView,
		PermFinanceManage,
	}
}
