package memory

import (
	"context"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
)

type UserRepository struct{ s *Store }

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (r *UserRepository) GetByID(_ context.Context, id string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (r *UserRepository) FindActiveUsers(_ context.Context, filter user.UserFilter) ([]user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []user.User
	for _, u := range r.s.users {
		if u.IsActive && matches(u, filter) {
			out = append(out, u)
		}
	}
	return out, nil
}

func matches(u user.User, f user.UserFilter) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.CompanyID != nil && u.CompanyID != *f.CompanyID {
		return false
	}
	if f.DepartmentID != nil && u.DepartmentID != *f.DepartmentID {
		return false
	}
	if f.SectionID != nil && (u.SectionID == nil || *u.SectionID != *f.SectionID) {
		return false
	}
	if f.ShiftID != nil && (u.ShiftID == nil || *u.ShiftID != *f.ShiftID) {
		return false
	}
	if f.ManagesDepartment != nil || f.ManagesSection != nil {
		dept := ""
		if f.ManagesDepartment != nil {
			dept = *f.ManagesDepartment
		}
		if !u.Manages(dept, f.ManagesSection) {
			return false
		}
	}
	if f.ExcludeUserID != nil && u.ID == *f.ExcludeUserID {
		return false
	}
	return true
}

var _ user.UserRepository = (*UserRepository)(nil)
