package user

import "time"

type Role string

const (
	RoleEmployee        Role = "employee"
	RoleShiftSupervisor Role = "shift_supervisor"
	RoleSectionHead     Role = "section_head"
	RoleDeptManager     Role = "dept_manager"
	RoleHRManager       Role = "hr_manager"
	RoleAdmin           Role = "admin"
	RoleHR              Role = "hr"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleShiftSupervisor, RoleSectionHead, RoleDeptManager, RoleHRManager, RoleAdmin, RoleHR:
		return true
	}
	return false
}

type User struct {
	ID           string
	CompanyID    string
	DepartmentID string
	SectionID    *string
	ShiftID      *string
	FullName     string
	Email        string
	Role         Role

	// Units this user manages in addition to their own position in the org tree.
	ManagedDepartments []string
	ManagedSections    []string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsHRManager checks if user can split requests and receives escalations
func (u *User) IsHRManager() bool {
	return u.Role == RoleHRManager
}

// IsAdmin checks if user is a system administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Manages reports whether departmentID or sectionID is listed among the user's managed units.
func (u *User) Manages(departmentID string, sectionID *string) bool {
	for _, d := range u.ManagedDepartments {
		if d == departmentID {
			return true
		}
	}
	if sectionID == nil {
		return false
	}
	for _, s := range u.ManagedSections {
		if s == *sectionID {
			return true
		}
	}
	return false
}
