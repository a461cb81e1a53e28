package auth

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermStoveRead    Permission = "stove:read"
	PermStoveOperate Permission = "stove:operate"
	PermStoveManage  Permission = "stove:manage"
	PermWorldEdit    Permission = "world:edit"
	PermAuditRead    Permission = "audit:read"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermStoveRead,
	},
	RoleOperator: {
		PermStoveRead,
		PermStoveOperate,
	},
	RoleAdmin: {
		PermStoveRead,
		PermStoveOperate,
		PermStoveManage,
		PermWorldEdit,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
