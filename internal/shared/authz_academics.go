package shared

// Academic structure permissions.
const (
	PermClassesView   = "classes.view"
	PermClassesCreate = "classes.create"
	PermClassesEdit   = "classes.edit"
	PermClassesDelete = "classes.delete"

	PermStudentsView   = "students.view"
	PermStudentsCreate = "students.create"
	PermStudentsEdit   = "students.edit"
	PermStudentsDelete = "students.delete"

	PermTeachersView   = "teachers.view"
	PermTeachersCreate = "teachers.create"
	PermTeachersEdit   = "teachers.edit"
	PermTeachersDelete = "teachers.delete"

	PermSubjectsView   = "subjects.view"
	PermSubjectsCreate = "subjects.create"
	PermSubjectsEdit   = "subjects.edit"
	PermSubjectsDelete = "subjects.delete"
)

// AcademicScopes lists permissions for classes, students, teachers and subjects.
func AcademicScopes() []string {
	return []string{
		PermClassesView,
		PermClassesCreate,
		PermClassesEdit,
		PermClassesDelete,
		PermStudentsView,
		PermStudentsCreate,
		PermStudentsEdit,
		PermStudentsDelete,
		PermTeachersView,
		PermTeachersCreate,
		PermTeachersEdit,
		PermTeachersDelete,
		PermSubjectsView,
		PermSubjectsCreate,
		PermSubjectsEdit,
		PermSubjectsDelete,
	}
}
