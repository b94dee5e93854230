package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
)

func newDefaultEvaluator(t *testing.T) *rbac.Evaluator {
	t.Helper()
	ev, err := rbac.NewDefaultEvaluator()
	require.NoError(t, err)
	return ev
}

func permissionIDs(perms []rbac.Permission) []string {
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestEveryGrantedPermissionExistsInCatalog(t *testing.T) {
	ev := newDefaultEvaluator(t)
	catalog := ev.Catalog()
	for _, role := range rbac.Roles() {
		perms, err := ev.RolePermissions(role)
		require.NoError(t, err)
		for _, p := range perms {
			assert.True(t, catalog.Exists(p.ID), "%s holds %s which is not in the catalog", role, p.ID)
		}
	}
}

func TestDirectorHoldsWholeCatalog(t *testing.T) {
	ev := newDefaultEvaluator(t)
	perms, err := ev.RolePermissions(rbac.RoleDirector)
	require.NoError(t, err)
	assert.Equal(t, ev.ListPermissions(), perms)
}

func TestDirectorFollowsCatalogGrowth(t *testing.T) {
	extended, err := rbac.DefaultCatalog().Extend(
		rbac.Permission{ID: "library.view", Name: "View library", Module: "library"},
		rbac.Permission{ID: "library.lend", Name: "Lend books", Module: "library"},
	)
	require.NoError(t, err)

	table, err := rbac.NewPolicyTable(extended, rbac.DefaultGrants())
	require.NoError(t, err)
	ev := rbac.NewEvaluator(table)

	perms, err := ev.RolePermissions(rbac.RoleDirector)
	require.NoError(t, err)
	assert.Equal(t, extended.List(), perms)
	assert.Len(t, perms, rbac.DefaultCatalog().Len()+2)

	ok, err := ev.HasPermission(rbac.RoleDirector, "library.lend")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.HasPermission(rbac.RoleSecretary, "library.lend")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluatorIsDeterministic(t *testing.T) {
	ev := newDefaultEvaluator(t)
	for _, role := range rbac.Roles() {
		for _, p := range ev.ListPermissions() {
			first, err1 := ev.HasPermission(role, p.ID)
			second, err2 := ev.HasPermission(role, p.ID)
			require.NoError(t, err1)
			require.NoError(t, err2)
			assert.Equal(t, first, second)
			assert.Equal(t, ev.CanPerform(role, p.Action(), p.Module), ev.CanPerform(role, p.Action(), p.Module))
			assert.Equal(t, first, ev.CanPerform(role, p.Action(), p.Module), "CanPerform must agree with HasPermission for %s %s", role, p.ID)
		}
	}
}

func TestStrictAndLenientChecks(t *testing.T) {
	ev := newDefaultEvaluator(t)

	_, err := ev.HasPermission(rbac.RoleTeacher, "no.such.permission")
	assert.ErrorIs(t, err, rbac.ErrUnknownPermission)

	assert.False(t, ev.CanPerform(rbac.RoleTeacher, "such", "no"))
	assert.False(t, ev.CanPerform(rbac.Role("ADMIN"), rbac.ActionView, rbac.ModuleStudents))
	assert.False(t, ev.CanPerform(rbac.RoleDirector, "", rbac.ModuleStudents))
}

func TestModuleAccessMatchesGrantedPermissions(t *testing.T) {
	ev := newDefaultEvaluator(t)
	for _, role := range rbac.Roles() {
		perms, err := ev.RolePermissions(role)
		require.NoError(t, err)
		for _, module := range ev.Catalog().Modules() {
			expected := false
			for _, p := range perms {
				if p.Module == module {
					expected = true
					break
				}
			}
			got, err := ev.HasModuleAccess(role, module)
			require.NoError(t, err)
			assert.Equal(t, expected, got, "%s module %s", role, module)
		}
	}
}

func TestRoleModulesListsAccessibleModules(t *testing.T) {
	ev := newDefaultEvaluator(t)
	modules, err := ev.RoleModules(rbac.RoleParent)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.ModuleStudents, rbac.ModuleAttendance, rbac.ModuleGrades, rbac.ModuleObservations}, modules)
}

func TestSecretaryScenario(t *testing.T) {
	ev := newDefaultEvaluator(t)
	assert.True(t, ev.CanPerform(rbac.RoleSecretary, rbac.ActionCreate, rbac.ModuleClasses))
	assert.False(t, ev.CanPerform(rbac.RoleSecretary, rbac.ActionDelete, rbac.ModuleClasses))
	assert.True(t, ev.CanPerform(rbac.RoleSecretary, rbac.ActionCreate, rbac.ModuleTeachers))

	ok, err := ev.HasPermission(rbac.RoleSecretary, shared.PermGradesCreate)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ev.HasPermission(rbac.RoleSecretary, shared.PermGradesView)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTeacherScenario(t *testing.T) {
	ev := newDefaultEvaluator(t)
	assert.True(t, ev.CanPerform(rbac.RoleTeacher, rbac.ActionEdit, rbac.ModuleGrades))
	assert.False(t, ev.CanPerform(rbac.RoleTeacher, rbac.ActionCreate, rbac.ModuleTeachers))

	ok, err := ev.HasModuleAccess(rbac.RoleTeacher, rbac.ModuleFinance)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParentScenario(t *testing.T) {
	ev := newDefaultEvaluator(t)
	ok, err := ev.HasModuleAccess(rbac.RoleParent, rbac.ModuleStudents)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, ev.CanPerform(rbac.RoleParent, rbac.ActionEdit, rbac.ModuleStudents))

	perms, err := ev.RolePermissions(rbac.RoleParent)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		shared.PermStudentsView,
		shared.PermGradesView,
		shared.PermObservationsView,
		shared.PermAttendanceView,
	}, permissionIDs(perms))
}

func TestUnknownRoleIsAnError(t *testing.T) {
	ev := newDefaultEvaluator(t)

	_, err := ev.RolePermissions(rbac.Role("ADMIN"))
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)

	_, err = ev.HasPermission(rbac.Role("ADMIN"), shared.PermStudentsView)
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)

	_, err = ev.HasModuleAccess(rbac.Role("ADMIN"), rbac.ModuleStudents)
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)

	_, err = ev.RoleModules(rbac.Role(""))
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)
}

func TestParseRole(t *testing.T) {
	role, err := rbac.ParseRole(" teacher ")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleTeacher, role)

	_, err = rbac.ParseRole("ADMIN")
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)

	assert.Equal(t, "Secretary", rbac.RoleSecretary.Label())
}
