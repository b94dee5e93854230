package shared

// Pupil record permissions.
const (
	PermAttendanceView   = "attendance.view"
	PermAttendanceManage = "attendance.manage"
	PermAttendanceEdit   = "attendance.edit"

	PermGradesView   = "grades.view"
	PermGradesCreate = "grades.create"
	PermGradesEdit   = "grades.edit"

	PermObservationsView   = "observations.view"
	PermObservationsCreate = "observations.create"
	PermObservationsEdit   = "observations.edit"
)

// RecordScopes lists attendance, grade and observation permissions.
func RecordScopes() []string {
	return []string{
		PermAttendanceView,
		PermAttendanceManage,
		PermAttendanceEdit,
		PermGradesView,
		PermGradesCreate,
		PermGradesEdit,
		PermObservationsView,
		PermObservationsCreate,
		PermObservationsEdit,
	}
}
