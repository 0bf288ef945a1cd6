package user

import (
	"context"
)

// UserFilter narrows FindActiveUsers. Zero-valued fields are ignored; inactive users are never returned.
type UserFilter struct {
	Role         *Role
	CompanyID    *string
	DepartmentID *string
	SectionID    *string
	ShiftID      *string

	// Matches users whose managed_departments contains ManagesDepartment
	// or whose managed_sections contains ManagesSection.
	ManagesDepartment *string
	ManagesSection    *string

	ExcludeUserID *string
}

// UserRepository is the read-only org directory.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	FindActiveUsers(ctx context.Context, filter UserFilter) ([]User, error)
}
