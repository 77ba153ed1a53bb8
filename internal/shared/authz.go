package shared

// Permissions declared for RBAC. Route groups gate on these strings; the
// seed script creates them.
const (
	PermFeesView    = "fees.view"
	PermFeesCollect = "fees.collect"
	PermFeesReverse = "fees.reverse"

	PermStudentsView = "students.view"
	PermStudentsEdit = "students.edit"

	PermUsersView   = "users.view"
	PermUsersManage = "users.manage"

	PermReportsView = "reports.view"
)

// AllPermissions lists every permission the application knows about.
func AllPermissions() []string {
	return []string{
		PermFeesView,
		PermFeesCollect,
		PermFeesReverse,
		PermStudentsView,
		PermStudentsEdit,
		PermUsersView,
		PermUsersManage,
		PermReportsView,
	}
}
