package leave

import (
	"strconv"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Viewer is the authenticated caller of a read operation.
type Viewer struct {
	UserID string
	Role   user.Role
}

type AttachmentInput struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

type CreateLeaveRequestRequest struct {
	RequesterID string            `json:"-"`
	LeaveTypeID string            `json:"leave_type_id"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	TotalDays   decimal.Decimal   `json:"total_days"`
	Reason      string            `json:"reason"`
	Attachments []AttachmentInput `json:"attachments,omitempty"`
}

func (r *CreateLeaveRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validatePeriod("", r.LeaveTypeID, r.StartDate, r.EndDate, r.TotalDays)...)

	// Reason
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}
	if len(r.Reason) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 1000 characters",
		})
	}

	for _, a := range r.Attachments {
		if validator.IsEmpty(a.FilePath) || validator.IsEmpty(a.FileName) {
			errs = append(errs, validator.ValidationError{
				Field:   "attachments",
				Message: "each attachment needs file_path and file_name",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// validatePeriod checks the fields shared by submissions and split parts. prefix namespaces the field names.
func validatePeriod(prefix, leaveTypeID, startDate, endDate string, totalDays decimal.Decimal) validator.ValidationErrors {
	var errs validator.ValidationErrors

	// Leave type ID
	if validator.IsEmpty(leaveTypeID) {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "leave_type_id",
			Message: "leave_type_id is required",
		})
	} else if !validator.IsValidUUID(leaveTypeID) {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "leave_type_id",
			Message: "leave_type_id must be a valid UUID",
		})
	}

	// Dates
	start, startOK := validator.IsValidDate(startDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, endOK := validator.IsValidDate(endDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	// Total days
	if !validator.IsPositiveDays(totalDays) {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "total_days",
			Message: "total_days must be positive with at most two decimals",
		})
	}

	return errs
}

type ApprovalActionRequest struct {
	RequestID  string  `json:"-"`
	ApproverID string  `json:"-"`
	Action     string  `json:"action"`
	Comment    *string `json:"comment,omitempty"`
}

func (r *ApprovalActionRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsInSlice(r.Action, []string{ActionApprove, ActionReject}) {
		errs = append(errs, validator.ValidationError{
			Field:   "action",
			Message: "action must be either approve or reject",
		})
	}
	if r.Comment != nil && len(*r.Comment) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "comment",
			Message: "comment must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CancelLeaveRequestRequest struct {
	RequestID    string `json:"-"`
	RequesterID  string `json:"-"`
	CancelReason string `json:"cancel_reason"`
}

func (r *CancelLeaveRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CancelReason) {
		errs = append(errs, validator.ValidationError{
			Field:   "cancel_reason",
			Message: "cancel_reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SplitPart struct {
	LeaveTypeID string          `json:"leave_type_id"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	TotalDays   decimal.Decimal `json:"total_days"`
	Reason      *string         `json:"reason,omitempty"`
}

type SplitLeaveRequestRequest struct {
	RequestID   string      `json:"-"`
	HRManagerID string      `json:"-"`
	Splits      []SplitPart `json:"splits"`
	Comment     *string     `json:"comment,omitempty"`
}

// Validate checks each part in isolation. The total is compared against the original by the service.
func (r *SplitLeaveRequestRequest) Validate() error {
	if len(r.Splits) < 2 {
		return ErrSplitPartsRequired
	}

	var errs validator.ValidationErrors
	for i, p := range r.Splits {
		prefix := "splits[" + strconv.Itoa(i) + "]."
		errs = append(errs, validatePeriod(prefix, p.LeaveTypeID, p.StartDate, p.EndDate, p.TotalDays)...)
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// SplitTotal sums the parts' day counts.
func (r *SplitLeaveRequestRequest) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Splits {
		total = total.Add(p.TotalDays)
	}
	return total
}

type MyLeaveRequestFilter struct {
	Status *string `json:"status,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

func (f *MyLeaveRequestFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil {
		switch LeaveRequestStatus(*f.Status) {
		case LeaveRequestStatusPending, LeaveRequestStatusInProgress, LeaveRequestStatusApproved,
			LeaveRequestStatusRejected, LeaveRequestStatusCancelled:
		default:
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of pending, in_progress, approved, rejected, cancelled",
			})
		}
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type LeaveApprovalResponse struct {
	ID            string     `json:"id"`
	Level         int        `json:"level"`
	ApproverID    string     `json:"approver_id"`
	ApproverName  *string    `json:"approver_name,omitempty"`
	Status        string     `json:"status"`
	Comment       *string    `json:"comment,omitempty"`
	ActionAt      *time.Time `json:"action_at,omitempty"`
	NotifiedAt    *time.Time `json:"notified_at,omitempty"`
	ReminderCount int        `json:"reminder_count"`
}

type LeaveAttachmentResponse struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	URL      string `json:"url,omitempty"`
}

type LeaveRequestResponse struct {
	ID                 string                    `json:"id"`
	LeaveCode          string                    `json:"leave_code"`
	RequesterID        string                    `json:"requester_id"`
	RequesterName      *string                   `json:"requester_name,omitempty"`
	LeaveTypeID        string                    `json:"leave_type_id"`
	LeaveTypeName      *string                   `json:"leave_type_name,omitempty"`
	StartDate          string                    `json:"start_date"`
	EndDate            string                    `json:"end_date"`
	TotalDays          decimal.Decimal           `json:"total_days"`
	Reason             string                    `json:"reason"`
	Status             string                    `json:"status"`
	CurrentLevel       int                       `json:"current_level"`
	EscalationDeadline time.Time                 `json:"escalation_deadline"`
	IsEscalated        bool                      `json:"is_escalated"`
	FinalApprovedBy    *string                   `json:"final_approved_by,omitempty"`
	FinalApprovedAt    *time.Time                `json:"final_approved_at,omitempty"`
	FinalRejectedBy    *string                   `json:"final_rejected_by,omitempty"`
	FinalRejectedAt    *time.Time                `json:"final_rejected_at,omitempty"`
	RejectReason       *string                   `json:"reject_reason,omitempty"`
	CancelReason       *string                   `json:"cancel_reason,omitempty"`
	CancelledAt        *time.Time                `json:"cancelled_at,omitempty"`
	SplitFromID        *string                   `json:"split_from_id,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	Approvals          []LeaveApprovalResponse   `json:"approvals,omitempty"`
	Attachments        []LeaveAttachmentResponse `json:"attachments,omitempty"`
}

type SplitLeaveRequestResponse struct {
	Original LeaveRequestResponse   `json:"original"`
	Splits   []LeaveRequestResponse `json:"splits"`
}

type ListLeaveRequestResponse struct {
	TotalCount    int64                  `json:"total_count"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
	TotalPages    int                    `json:"total_pages"`
	Showing       string                 `json:"showing"`
	LeaveRequests []LeaveRequestResponse `json:"leave_requests"`
}

type PendingApprovalResponse struct {
	ApprovalID   string               `json:"approval_id"`
	Level        int                  `json:"level"`
	NotifiedAt   *time.Time           `json:"notified_at,omitempty"`
	LeaveRequest LeaveRequestResponse `json:"leave_request"`
}

func ToLeaveApprovalResponse(a LeaveApproval) LeaveApprovalResponse {
	return LeaveApprovalResponse{
		ID:            a.ID,
		Level:         a.Level,
		ApproverID:    a.ApproverID,
		ApproverName:  a.ApproverName,
		Status:        string(a.Status),
		Comment:       a.Comment,
		ActionAt:      a.ActionAt,
		NotifiedAt:    a.NotifiedAt,
		ReminderCount: a.ReminderCount,
	}
}

func ToLeaveRequestResponse(r LeaveRequest) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:                 r.ID,
		LeaveCode:          r.LeaveCode,
		RequesterID:        r.RequesterID,
		RequesterName:      r.RequesterName,
		LeaveTypeID:        r.LeaveTypeID,
		LeaveTypeName:      r.LeaveTypeName,
		StartDate:          r.StartDate.Format(time.DateOnly),
		EndDate:            r.EndDate.Format(time.DateOnly),
		TotalDays:          r.TotalDays,
		Reason:             r.Reason,
		Status:             string(r.Status),
		CurrentLevel:       r.CurrentLevel,
		EscalationDeadline: r.EscalationDeadline,
		IsEscalated:        r.IsEscalated,
		FinalApprovedBy:    r.FinalApprovedBy,
		FinalApprovedAt:    r.FinalApprovedAt,
		FinalRejectedBy:    r.FinalRejectedBy,
		FinalRejectedAt:    r.FinalRejectedAt,
		RejectReason:       r.RejectReason,
		CancelReason:       r.CancelReason,
		CancelledAt:        r.CancelledAt,
		SplitFromID:        r.SplitFromID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
