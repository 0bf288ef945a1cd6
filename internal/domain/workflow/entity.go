package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
)

// ApproverRole is the role keyword a workflow step may carry instead of a fixed approver.
type ApproverRole string

const (
	ApproverRoleHRManager       ApproverRole = "hr_manager"
	ApproverRoleSectionHead     ApproverRole = "section_head"
	ApproverRoleDeptManager     ApproverRole = "dept_manager"
	ApproverRoleShiftSupervisor ApproverRole = "shift_supervisor"
)

// ParseApproverRole rejects any keyword that has no resolver.
func ParseApproverRole(s string) (ApproverRole, error) {
	switch r := ApproverRole(strings.TrimSpace(s)); r {
	case ApproverRoleHRManager, ApproverRoleSectionHead, ApproverRoleDeptManager, ApproverRoleShiftSupervisor:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownApproverRole, s)
}

// UserRole is the directory role holding this approver role.
func (r ApproverRole) UserRole() user.Role {
	return user.Role(r)
}

// HRLevel is the level reserved for the HR tier.
const HRLevel = 99

type ApprovalWorkflow struct {
	ID           string
	Name         string
	CompanyID    string
	DepartmentID *string
	SectionID    *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Steps []ApprovalWorkflowStep
}

type ApprovalWorkflowStep struct {
	ID           string
	WorkflowID   string
	Level        int
	ApproverID   *string
	ApproverRole *string
}

// UserApprovalFlow is a per-user approval chain override.
type UserApprovalFlow struct {
	ID         string
	UserID     string
	Level      int
	ApproverID string
	IsRequired bool
	IsActive   bool
}

// Scope identifies a workflow by org unit. A non-nil SectionID matches on section alone,
// whatever department the workflow row carries. Otherwise a nil DepartmentID matches NULL and
// only workflows without a section qualify.
type Scope struct {
	CompanyID    string
	DepartmentID *string
	SectionID    *string
}

// Step is one resolved level of an approval chain.
type Step struct {
	Level      int
	ApproverID string
}

type Chain []Step
