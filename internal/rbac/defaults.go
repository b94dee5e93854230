package rbac

import (
	"fmt"
	"slices"

	"github.com/ecoly/ecoly/internal/shared"
)

// School modules.
const (
	ModuleClasses      = "classes"
	ModuleStudents     = "students"
	ModuleTeachers     = "teachers"
	ModuleAttendance   = "attendance"
	ModuleGrades       = "grades"
	ModuleObservations = "observations"
	ModuleFinance      = "finance"
	ModuleSubjects     = "subjects"
	ModuleSettings     = "settings"
	ModuleUsers        = "users"
	ModuleReports      = "reports"
)

// Common actions.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionManage = "manage"
	ActionExport = "export"
)

// DefaultPermissions returns the school permission catalog entries.
func DefaultPermissions() []Permission {
	return []Permission{
		{ID: shared.PermClassesView, Name: "View classes", Description: "Can see the list of classes", Module: ModuleClasses},
		{ID: shared.PermClassesCreate, Name: "Create classes", Description: "Can create new classes", Module: ModuleClasses},
		{ID: shared.PermClassesEdit, Name: "Edit classes", Description: "Can change class details", Module: ModuleClasses},
		{ID: shared.PermClassesDelete, Name: "Delete classes", Description: "Can delete classes", Module: ModuleClasses},

		{ID: shared.PermStudentsView, Name: "View students", Description: "Can see the list of students", Module: ModuleStudents},
		{ID: shared.PermStudentsCreate, Name: "Create students", Description: "Can enrol new students", Module: ModuleStudents},
		{ID: shared.PermStudentsEdit, Name: "Edit students", Description: "Can change student details", Module: ModuleStudents},
		{ID: shared.PermStudentsDelete, Name: "Delete students", Description: "Can remove students", Module: ModuleStudents},

		{ID: shared.PermTeachersView, Name: "View teachers", Description: "Can see the list of teachers", Module: ModuleTeachers},
		{ID: shared.PermTeachersCreate, Name: "Create teachers", Description: "Can add new teachers", Module: ModuleTeachers},
		{ID: shared.PermTeachersEdit, Name: "Edit teachers", Description: "Can change teacher details", Module: ModuleTeachers},
		{ID: shared.PermTeachersDelete, Name: "Delete teachers", Description: "Can remove teachers", Module: ModuleTeachers},

		{ID: shared.PermAttendanceView, Name: "View attendance", Description: "Can see attendance registers", Module: ModuleAttendance},
		{ID: shared.PermAttendanceManage, Name: "Take attendance", Description: "Can mark students present or absent", Module: ModuleAttendance},
		{ID: shared.PermAttendanceEdit, Name: "Edit attendance", Description: "Can correct attendance records", Module: ModuleAttendance},

		{ID: shared.PermGradesView, Name: "View grades", Description: "Can see student grades", Module: ModuleGrades},
		{ID: shared.PermGradesCreate, Name: "Create grades", Description: "Can record new grades", Module: ModuleGrades},
		{ID: shared.PermGradesEdit, Name: "Edit grades", Description: "Can change existing grades", Module: ModuleGrades},

		{ID: shared.PermObservationsView, Name: "View observations", Description: "Can see observations about students", Module: ModuleObservations},
		{ID: shared.PermObservationsCreate, Name: "Create observations", Description: "Can write new observations", Module: ModuleObservations},
		{ID: shared.PermObservationsEdit, Name: "Edit observations", Description: "Can change existing observations", Module: ModuleObservations},

		{ID: shared.PermFinanceView, Name: "View finances", Description: "Can see financial information", Module: ModuleFinance},
		{ID: shared.PermFinanceManage, Name: "Manage finances", Description: "Can manage payments and billing", Module: ModuleFinance},

		{ID: shared.PermSubjectsView, Name: "View subjects", Description: "Can see the list of subjects", Module: ModuleSubjects},
		{ID: shared.PermSubjectsCreate, Name: "Create subjects", Description: "Can create new subjects", Module: ModuleSubjects},
		{ID: shared.PermSubjectsEdit, Name: "Edit subjects", Description: "Can change existing subjects", Module: ModuleSubjects},
		{ID: shared.PermSubjectsDelete, Name: "Delete subjects", Description: "Can delete subjects", Module: ModuleSubjects},

		{ID: shared.PermSettingsView, Name: "View settings", Description: "Can see application settings", Module: ModuleSettings},
		{ID: shared.PermSettingsManage, Name: "Manage settings", Description: "Can change application settings", Module: ModuleSettings},
		{ID: shared.PermUsersManage, Name: "Manage users", Description: "Can manage user accounts", Module: ModuleUsers},

		{ID: shared.PermReportsView, Name: "View reports", Description: "Can see reports and statistics", Module: ModuleReports},
		{ID: shared.PermReportsExport, Name: "Export reports", Description: "Can export reports", Module: ModuleReports},
	}
}

// DefaultCatalog builds the school permission catalog.
func DefaultCatalog() *Catalog {
	return MustCatalog(DefaultPermissions()...)
}

// DefaultGrants returns the school role grants. Grants are listed per role
// on purpose; roles do not inherit from each other.
func DefaultGrants() map[Role]Grant {
	return map[Role]Grant{
		RoleDirector: AllPermissions(),
		RoleSecretary: Permissions(
			shared.PermClassesView,
			shared.PermClassesCreate,
			shared.PermClassesEdit,

			shared.PermStudentsView,
			shared.PermStudentsCreate,
			shared.PermStudentsEdit,

			shared.PermTeachersView,
			shared.PermTeachersCreate,
			shared.PermTeachersEdit,

			shared.PermAttendanceView,
			shared.PermAttendanceManage,
			shared.PermAttendanceEdit,

			// Grades belong to teachers.
			shared.PermGradesView,

			shared.PermObservationsView,
			shared.PermObservationsCreate,

			shared.PermSubjectsView,
			shared.PermSubjectsCreate,
			shared.PermSubjectsEdit,

			shared.PermSettingsView,

			shared.PermReportsView,
			shared.PermReportsExport,
		),
		RoleTeacher: Permissions(
			shared.PermClassesView,
			shared.PermStudentsView,
			shared.PermStudentsEdit,
			shared.PermAttendanceManage,
			shared.PermGradesCreate,
			shared.PermGradesEdit,
			shared.PermGradesView,
			shared.PermObservationsCreate,
			shared.PermObservationsView,
			shared.PermObservationsEdit,
			shared.PermSubjectsView,
		),
		RoleParent: Permissions(
			shared.PermStudentsView,
			shared.PermGradesView,
			shared.PermObservationsView,
			shared.PermAttendanceView,
		),
	}
}

// CheckDeclaredScopes reports permission ids declared as shared constants
// but absent from c, and catalog entries with no declared constant.
func CheckDeclaredScopes(c *Catalog) error {
	declared := shared.DeclaredScopes()
	var missing, undeclared []string
	for _, id := range declared {
		if !c.Exists(id) {
			missing = append(missing, id)
		}
	}
	for _, p := range c.List() {
		if !slices.Contains(declared, p.ID) {
			undeclared = append(undeclared, p.ID)
		}
	}
	if len(missing) > 0 || len(undeclared) > 0 {
		return fmt.Errorf("%w: declared but not catalogued %v, catalogued but not declared %v", ErrInvalidCatalog, missing, undeclared)
	}
	return nil
}

// NewDefaultEvaluator validates the default tables and returns an evaluator
// over them.
func NewDefaultEvaluator() (*Evaluator, error) {
	catalog := DefaultCatalog()
	if err := CheckDeclaredScopes(catalog); err != nil {
		return nil, err
	}
	table, err := NewPolicyTable(catalog, DefaultGrants())
	if err != nil {
		return nil, err
	}
	return NewEvaluator(table), nil
}
