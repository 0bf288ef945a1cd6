package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleHRManager, PermissionLeaveSplit))
	assert.False(t, HasPermission(RoleHR, PermissionLeaveSplit))
	assert.True(t, HasPermission(RoleAdmin, PermissionEscalationRun))
	assert.False(t, HasPermission(RoleEmployee, PermissionLeaveApprove))
	assert.False(t, HasPermission(Role("owner"), PermissionLeaveViewOwn))
}

func TestUser_Manages(t *testing.T) {
	section := "sec-2"
	u := User{
		ManagedDepartments: []string{"dept-1"},
		ManagedSections:    []string{"sec-2"},
	}

	assert.True(t, u.Manages("dept-1", nil))
	assert.True(t, u.Manages("dept-9", &section))
	assert.False(t, u.Manages("dept-9", nil))
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleShiftSupervisor.IsValid())
	assert.False(t, Role("manager").IsValid())
}
