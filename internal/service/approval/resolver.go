package approval

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
)

// Resolver maps an approver role keyword to a concrete user for a given requester.
type Resolver struct {
	users user.UserRepository
}

func NewResolver(users user.UserRepository) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns nil without error when nobody holds the role for the requester.
// The requester is never returned.
func (r *Resolver) Resolve(ctx context.Context, role workflow.ApproverRole, requester user.User) (*user.User, error) {
	var (
		approver *user.User
		err      error
	)

	switch role {
	case workflow.ApproverRoleHRManager:
		approver, err = r.resolveHRManager(ctx, requester)
	case workflow.ApproverRoleSectionHead:
		approver, err = r.resolveSectionHead(ctx, requester)
	case workflow.ApproverRoleDeptManager:
		approver, err = r.resolveDeptManager(ctx, requester)
	case workflow.ApproverRoleShiftSupervisor:
		approver, err = r.resolveShiftSupervisor(ctx, requester)
	default:
		return nil, fmt.Errorf("%w: %q", workflow.ErrUnknownApproverRole, role)
	}
	if err != nil {
		return nil, err
	}
	if approver != nil {
		return approver, nil
	}

	return r.resolveByManagedUnits(ctx, role, requester)
}

func (r *Resolver) resolveHRManager(ctx context.Context, requester user.User) (*user.User, error) {
	role := user.RoleHRManager
	approver, err := r.first(ctx, user.UserFilter{
		Role:          &role,
		CompanyID:     &requester.CompanyID,
		ExcludeUserID: &requester.ID,
	})
	if err != nil || approver != nil {
		return approver, err
	}

	// No HR manager in the requester's company; any active one will do.
	return r.first(ctx, user.UserFilter{
		Role:          &role,
		ExcludeUserID: &requester.ID,
	})
}

func (r *Resolver) resolveSectionHead(ctx context.Context, requester user.User) (*user.User, error) {
	if requester.SectionID == nil {
		return nil, nil
	}
	role := user.RoleSectionHead
	return r.first(ctx, user.UserFilter{
		Role:          &role,
		SectionID:     requester.SectionID,
		ExcludeUserID: &requester.ID,
	})
}

func (r *Resolver) resolveDeptManager(ctx context.Context, requester user.User) (*user.User, error) {
	role := user.RoleDeptManager
	return r.first(ctx, user.UserFilter{
		Role:          &role,
		DepartmentID:  &requester.DepartmentID,
		ExcludeUserID: &requester.ID,
	})
}

func (r *Resolver) resolveShiftSupervisor(ctx context.Context, requester user.User) (*user.User, error) {
	if requester.ShiftID == nil {
		return nil, nil
	}
	role := user.RoleShiftSupervisor
	return r.first(ctx, user.UserFilter{
		Role:          &role,
		ShiftID:       requester.ShiftID,
		ExcludeUserID: &requester.ID,
	})
}

func (r *Resolver) resolveByManagedUnits(ctx context.Context, role workflow.ApproverRole, requester user.User) (*user.User, error) {
	userRole := role.UserRole()
	return r.first(ctx, user.UserFilter{
		Role:              &userRole,
		ManagesDepartment: &requester.DepartmentID,
		ManagesSection:    requester.SectionID,
		ExcludeUserID:     &requester.ID,
	})
}

func (r *Resolver) first(ctx context.Context, filter user.UserFilter) (*user.User, error) {
	users, err := r.users.FindActiveUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find approver candidates: %w", err)
	}
	for i := range users {
		// Repositories already exclude the requester; keep the guarantee local too.
		if filter.ExcludeUserID != nil && users[i].ID == *filter.ExcludeUserID {
			continue
		}
		return &users[i], nil
	}
	return nil, nil
}
