package leave

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// HRLevel is the approval level reserved for the HR tier.
const HRLevel = workflow.HRLevel

type LeaveType struct {
	ID                 string
	CompanyID          string
	Code               string
	Name               string
	IsActive           bool
	RequiresAttachment bool
	MaxDaysPerRequest  *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type LeaveRequestStatus string

const (
	LeaveRequestStatusPending    LeaveRequestStatus = "pending"
	LeaveRequestStatusInProgress LeaveRequestStatus = "in_progress"
	LeaveRequestStatusApproved   LeaveRequestStatus = "approved"
	LeaveRequestStatusRejected   LeaveRequestStatus = "rejected"
	LeaveRequestStatusCancelled  LeaveRequestStatus = "cancelled"
)

// IsActive reports whether the request is still moving through its chain.
func (s LeaveRequestStatus) IsActive() bool {
	return s == LeaveRequestStatusPending || s == LeaveRequestStatusInProgress
}

type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusSkipped   ApprovalStatus = "skipped"
	ApprovalStatusCancelled ApprovalStatus = "cancelled"
)

// LeaveRequest entity
type LeaveRequest struct {
	ID          string
	LeaveCode   string
	RequesterID string
	LeaveTypeID string

	StartDate time.Time
	EndDate   time.Time
	TotalDays decimal.Decimal
	Reason    string

	Status             LeaveRequestStatus
	CurrentLevel       int
	EscalationDeadline time.Time
	IsEscalated        bool

	FinalApprovedBy *string
	FinalApprovedAt *time.Time
	FinalRejectedBy *string
	FinalRejectedAt *time.Time
	RejectReason    *string

	CancelReason *string
	CancelledAt  *time.Time

	SplitFromID *string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships (for responses)
	RequesterName *string
	LeaveTypeName *string
	CompanyID     *string
}

// LeaveApproval is one level of a request's approval chain.
type LeaveApproval struct {
	ID             string
	LeaveRequestID string
	Level          int
	ApproverID     string
	Status         ApprovalStatus
	Comment        *string
	ActionAt       *time.Time
	NotifiedAt     *time.Time
	ReminderCount  int
	CreatedAt      time.Time
	UpdatedAt      time.Time

	ApproverName *string
}

type LeaveAttachment struct {
	ID             string
	LeaveRequestID string
	FilePath       string
	FileName       string
	CreatedAt      time.Time
}

// DownloadPath is the authenticated route serving the attachment.
func (a LeaveAttachment) DownloadPath() string {
	return fmt.Sprintf("/api/v1/leave-requests/%s/attachments/%s", a.LeaveRequestID, a.ID)
}

// PendingApproval is an inbox row: an active step joined with its request.
type PendingApproval struct {
	Approval LeaveApproval
	Request  LeaveRequest
}

// ActiveStep returns the pending step at level, or nil.
func ActiveStep(approvals []LeaveApproval, level int) *LeaveApproval {
	for i := range approvals {
		if approvals[i].Level == level && approvals[i].Status == ApprovalStatusPending {
			return &approvals[i]
		}
	}
	return nil
}

// NextPendingStep returns the pending step with the lowest level above level, or nil.
func NextPendingStep(approvals []LeaveApproval, level int) *LeaveApproval {
	var next *LeaveApproval
	for i := range approvals {
		a := &approvals[i]
		if a.Status != ApprovalStatusPending || a.Level <= level {
			continue
		}
		if next == nil || a.Level < next.Level {
			next = a
		}
	}
	return next
}

// LeaveCodePrefix is the per type and month sequence key, e.g. "AL2501".
func LeaveCodePrefix(typeCode string, at time.Time) string {
	return typeCode + at.Format("0601")
}

func FormatLeaveCode(prefix string, seq int) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}

// EscalationDeadline is createdAt shifted by days, at hour:00 local time in loc.
func EscalationDeadline(createdAt time.Time, loc *time.Location, days, hour int) time.Time {
	d := createdAt.In(loc).AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
}
