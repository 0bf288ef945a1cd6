package user

type Permission string

const (
	PermissionLeaveViewOwn  Permission = "leave.view_own"
	PermissionLeaveCreate   Permission = "leave.create"
	PermissionLeaveViewAll  Permission = "leave.view_all"
	PermissionLeaveApprove  Permission = "leave.approve"
	PermissionLeaveSplit    Permission = "leave.split"
	PermissionEscalationRun Permission = "escalation.run"
)

var employeePermissions = []Permission{
	PermissionLeaveViewOwn,
	PermissionLeaveCreate,
}

var approverPermissions = []Permission{
	PermissionLeaveViewOwn,
	PermissionLeaveCreate,
	PermissionLeaveApprove,
}

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleEmployee:        employeePermissions,
	RoleShiftSupervisor: approverPermissions,
	RoleSectionHead:     approverPermissions,
	RoleDeptManager:     approverPermissions,
	RoleHR: {
		PermissionLeaveViewOwn,
		PermissionLeaveCreate,
		PermissionLeaveViewAll,
		PermissionLeaveApprove,
	},
	RoleHRManager: {
		PermissionLeaveViewOwn,
		PermissionLeaveCreate,
		PermissionLeaveViewAll,
		PermissionLeaveApprove,
		PermissionLeaveSplit,
	},
	RoleAdmin: {
		PermissionLeaveViewOwn,
		PermissionLeaveCreate,
		PermissionLeaveViewAll,
		PermissionLeaveApprove,
		PermissionEscalationRun,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
