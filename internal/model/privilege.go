package model

// Privilege codes checked by the HTTP middleware
const (
	PrivDashboardView = "dashboard:view"

	PrivProductView   = "product:view"
	PrivProductManage = "product:manage"

	PrivOrderView   = "order:view"
	PrivOrderCreate = "order:create"
	PrivOrderUpdate = "order:update"
	PrivOrderSync   = "order:sync"

	PrivLeadView   = "lead:view"
	PrivLeadUpdate = "lead:update"
	PrivLeadManage = "lead:manage"

	PrivModeratorManage = "moderator:manage"
	PrivSettingsManage  = "settings:manage"
	PrivSnapshotManage  = "snapshot:manage"
)

var moderatorPrivileges = []string{
	PrivDashboardView,
	PrivProductView,
	PrivOrderView,
	PrivOrderCreate,
	PrivOrderUpdate,
	PrivLeadView,
	PrivLeadUpdate,
}

var adminPrivileges = append(append([]string{}, moderatorPrivileges...),
	PrivProductManage,
	PrivOrderSync,
	PrivLeadManage,
	PrivModeratorManage,
	PrivSettingsManage,
	PrivSnapshotManage,
)

// PrivilegesFor returns the privilege codes granted to a role
func PrivilegesFor(role Role) []string {
	var src []string
	switch role {
	case RoleAdmin:
		src = adminPrivileges
	case RoleModerator:
		src = moderatorPrivileges
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
