package shared

// Core platform permissions.
const (
	PermUsersView = "users_view"
	PermUsersEdit = "users_update"

	PermRolesView   = "roles_view"
	PermRolesManage = "roles_manage"

	PermPermissionsView = "permissions_view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesManage,
		PermPermissionsView,
	}
}
