package auth

// Role is an authorisation tier.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Permission is a named capability.
type Permission string

const (
	PermTelemetryRead Permission = "telemetry:read"
	PermDeviceOperate Permission = "device:operate"
	PermDeviceManage  Permission = "device:manage"
	PermKeycardRead   Permission = "keycard:read"
	PermKeycardManage Permission = "keycard:manage"
)

// rolePermissions is the whole authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleUser: {
		PermTelemetryRead,
		PermDeviceOperate,
		PermKeycardRead,
	},
	RoleAdmin: {
		PermTelemetryRead,
		PermDeviceOperate,
		PermDeviceManage,
		PermKeycardRead,
		PermKeycardManage,
	},
}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	_, ok := rolePermissions[r]
	return ok
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
