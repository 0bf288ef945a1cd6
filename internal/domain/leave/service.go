package leave

import (
	"context"
	"io"
)

type LeaveService interface {
	Submit(ctx context.Context, req CreateLeaveRequestRequest) (LeaveRequestResponse, error)
	Approve(ctx context.Context, req ApprovalActionRequest) (LeaveRequestResponse, error)
	Reject(ctx context.Context, req ApprovalActionRequest) (LeaveRequestResponse, error)
	Cancel(ctx context.Context, req CancelLeaveRequestRequest) (LeaveRequestResponse, error)
	Split(ctx context.Context, req SplitLeaveRequestRequest) (SplitLeaveRequestResponse, error)

	GetLeaveRequest(ctx context.Context, requestID string, viewer Viewer) (LeaveRequestResponse, error)
	ListMyLeaveRequests(ctx context.Context, requesterID string, filter MyLeaveRequestFilter) (ListLeaveRequestResponse, error)
	ListPendingApprovals(ctx context.Context, approverID string) ([]PendingApprovalResponse, error)
	// OpenAttachment returns the attachment and its content when viewer may see the request.
	OpenAttachment(ctx context.Context, requestID, attachmentID string, viewer Viewer) (LeaveAttachment, io.ReadSeekCloser, error)
}

// SweepResult summarises one escalation sweep.
type SweepResult struct {
	Escalated int      `json:"escalated"`
	Reminded  int      `json:"reminded"`
	Errors    []string `json:"errors"`
}

type EscalationService interface {
	RunSweep(ctx context.Context) SweepResult
}
