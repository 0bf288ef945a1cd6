package leave

import (
	"context"
	"time"
)

// LeaveTypeRepository - interface for leave_types table
type LeaveTypeRepository interface {
	GetByID(ctx context.Context, id string) (LeaveType, error)
}

// LeaveRequestRepository - interface for leave_requests table
type LeaveRequestRepository interface {
	Create(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (LeaveRequest, error)
	GetByRequesterID(ctx context.Context, requesterID string, filter MyLeaveRequestFilter) ([]LeaveRequest, int64, error)
	Update(ctx context.Context, request LeaveRequest) error
	// FindEscalationCandidates returns active, not yet escalated requests whose deadline is at or before now.
	FindEscalationCandidates(ctx context.Context, now time.Time) ([]LeaveRequest, error)
	// FindReminderCandidates returns active, not escalated requests whose deadline falls in (now, until].
	FindReminderCandidates(ctx context.Context, now, until time.Time) ([]LeaveRequest, error)
}

// LeaveApprovalRepository - interface for leave_approvals table
type LeaveApprovalRepository interface {
	Create(ctx context.Context, approval LeaveApproval) (LeaveApproval, error)
	GetByRequestID(ctx context.Context, requestID string) ([]LeaveApproval, error)
	Update(ctx context.Context, approval LeaveApproval) error
	// GetPendingByApproverID lists steps awaiting approverID on requests whose current level is that step.
	GetPendingByApproverID(ctx context.Context, approverID string) ([]PendingApproval, error)
}

// LeaveAttachmentRepository - interface for leave_attachments table
type LeaveAttachmentRepository interface {
	Create(ctx context.Context, attachment LeaveAttachment) (LeaveAttachment, error)
	GetByRequestID(ctx context.Context, requestID string) ([]LeaveAttachment, error)
}

// LeaveCodeSequenceRepository hands out running numbers per leave code prefix.
type LeaveCodeSequenceRepository interface {
	NextValue(ctx context.Context, prefix string) (int, error)
}
