package approval

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
)

type fakeUsers struct {
	users []user.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (f *fakeUsers) FindActiveUsers(_ context.Context, filter user.UserFilter) ([]user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []user.User
	for _, u := range f.users {
		if !u.IsActive {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.CompanyID != nil && u.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.DepartmentID != nil && u.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.SectionID != nil && (u.SectionID == nil || *u.SectionID != *filter.SectionID) {
			continue
		}
		if filter.ShiftID != nil && (u.ShiftID == nil || *u.ShiftID != *filter.ShiftID) {
			continue
		}
		if filter.ManagesDepartment != nil || filter.ManagesSection != nil {
			dept := ""
			if filter.ManagesDepartment != nil {
				dept = *filter.ManagesDepartment
			}
			if !u.Manages(dept, filter.ManagesSection) {
				continue
			}
		}
		if filter.ExcludeUserID != nil && u.ID == *filter.ExcludeUserID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type fakeWorkflows struct {
	workflows []workflow.ApprovalWorkflow
	flows     map[string][]workflow.UserApprovalFlow
}

func (f *fakeWorkflows) FindActiveWorkflow(_ context.Context, scope workflow.Scope) (workflow.ApprovalWorkflow, error) {
	for _, wf := range f.workflows {
		if !wf.IsActive || wf.CompanyID != scope.CompanyID {
			continue
		}
		if scope.SectionID != nil {
			if !sameRef(wf.SectionID, scope.SectionID) {
				continue
			}
		} else if wf.SectionID != nil || !sameRef(wf.DepartmentID, scope.DepartmentID) {
			continue
		}
		return wf, nil
	}
	return workflow.ApprovalWorkflow{}, workflow.ErrWorkflowNotFound
}

func (f *fakeWorkflows) FindUserApprovalFlow(_ context.Context, userID string) ([]workflow.UserApprovalFlow, error) {
	return f.flows[userID], nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ptr(s string) *string { return &s }

var errDirectoryDown = errors.New("directory unavailable")

// Org fixture: company c1 with department d1 (sections s1, s2) and shift sh1.
func orgUsers() []user.User {
	return []user.User{
		{ID: "emp", CompanyID: "c1", DepartmentID: "d1", SectionID: ptr("s1"), ShiftID: ptr("sh1"), Role: user.RoleEmployee, IsActive: true},
		{ID: "sup", CompanyID: "c1", DepartmentID: "d1", SectionID: ptr("s1"), ShiftID: ptr("sh1"), Role: user.RoleShiftSupervisor, IsActive: true},
		{ID: "head", CompanyID: "c1", DepartmentID: "d1", SectionID: ptr("s1"), Role: user.RoleSectionHead, IsActive: true},
		{ID: "mgr", CompanyID: "c1", DepartmentID: "d1", Role: user.RoleDeptManager, IsActive: true},
		{ID: "hrm", CompanyID: "c1", DepartmentID: "hr", Role: user.RoleHRManager, IsActive: true},
		{ID: "admin", CompanyID: "c1", DepartmentID: "it", Role: user.RoleAdmin, IsActive: true},
	}
}

func findUser(users []user.User, id string) user.User {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	panic("unknown fixture user " + id)
}

func without(users []user.User, ids ...string) []user.User {
	var out []user.User
	for _, u := range users {
		skip := false
		for _, id := range ids {
			if u.ID == id {
				skip = true
			}
		}
		if !skip {
			out = append(out, u)
		}
	}
	return out
}
