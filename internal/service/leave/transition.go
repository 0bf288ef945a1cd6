package leave

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
)

// Approve implements leave.LeaveService.
func (l *LeaveServiceImpl) Approve(ctx context.Context, req leave.ApprovalActionRequest) (leave.LeaveRequestResponse, error) {
	var (
		request   leave.LeaveRequest
		approvals []leave.LeaveApproval
		notes     []notification.CreateNotificationRequest
	)

	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var (
			step *leave.LeaveApproval
			err  error
		)
		request, approvals, step, err = l.lockForAction(ctx, req.RequestID, req.ApproverID)
		if err != nil {
			return err
		}

		now := l.now()
		step.Status = leave.ApprovalStatusApproved
		step.Comment = req.Comment
		step.ActionAt = &now
		step.UpdatedAt = now
		if err := l.repos.Approvals.Update(ctx, *step); err != nil {
			return fmt.Errorf("failed to update leave approval: %w", err)
		}

		next := leave.NextPendingStep(approvals, request.CurrentLevel)
		if next == nil {
			request.Status = leave.LeaveRequestStatusApproved
			request.FinalApprovedBy = &req.ApproverID
			request.FinalApprovedAt = &now
			notes = append(notes, leave.ApprovedNotification(request))
		} else {
			request.Status = leave.LeaveRequestStatusInProgress
			request.CurrentLevel = next.Level
			next.NotifiedAt = &now
			next.UpdatedAt = now
			if err := l.repos.Approvals.Update(ctx, *next); err != nil {
				return fmt.Errorf("failed to update next leave approval: %w", err)
			}
			approved, total := progress(approvals)
			notes = append(notes,
				leave.ApprovalPendingNotification(next.ApproverID, request),
				leave.ProgressNotification(request, approved, total),
			)
		}

		request.UpdatedAt = now
		if err := l.repos.Requests.Update(ctx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	l.dispatch(ctx, notes)

	return l.toResponse(request, approvals, nil), nil
}

// Reject implements leave.LeaveService.
func (l *LeaveServiceImpl) Reject(ctx context.Context, req leave.ApprovalActionRequest) (leave.LeaveRequestResponse, error) {
	var (
		request   leave.LeaveRequest
		approvals []leave.LeaveApproval
	)

	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var (
			step *leave.LeaveApproval
			err  error
		)
		request, approvals, step, err = l.lockForAction(ctx, req.RequestID, req.ApproverID)
		if err != nil {
			return err
		}

		now := l.now()
		step.Status = leave.ApprovalStatusRejected
		step.Comment = req.Comment
		step.ActionAt = &now
		step.UpdatedAt = now
		if err := l.repos.Approvals.Update(ctx, *step); err != nil {
			return fmt.Errorf("failed to update leave approval: %w", err)
		}

		// Higher levels stay as they are.
		request.Status = leave.LeaveRequestStatusRejected
		request.FinalRejectedBy = &req.ApproverID
		request.FinalRejectedAt = &now
		request.RejectReason = req.Comment
		request.UpdatedAt = now
		if err := l.repos.Requests.Update(ctx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	l.dispatch(ctx, []notification.CreateNotificationRequest{leave.RejectedNotification(request)})

	return l.toResponse(request, approvals, nil), nil
}

// lockForAction locks the request and returns the step approverID must act on.
func (l *LeaveServiceImpl) lockForAction(ctx context.Context, requestID, approverID string) (leave.LeaveRequest, []leave.LeaveApproval, *leave.LeaveApproval, error) {
	request, err := l.repos.Requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return leave.LeaveRequest{}, nil, nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	if !request.Status.IsActive() {
		return leave.LeaveRequest{}, nil, nil, leave.ErrLeaveRequestAlreadyProcessed
	}

	approvals, err := l.repos.Approvals.GetByRequestID(ctx, request.ID)
	if err != nil {
		return leave.LeaveRequest{}, nil, nil, fmt.Errorf("failed to get leave approvals: %w", err)
	}

	step := leave.ActiveStep(approvals, request.CurrentLevel)
	if step == nil || step.ApproverID != approverID {
		return leave.LeaveRequest{}, nil, nil, leave.ErrNotCurrentApprover
	}
	return request, approvals, step, nil
}

// progress counts approved steps against the steps still part of the chain.
func progress(approvals []leave.LeaveApproval) (approved, total int) {
	for _, a := range approvals {
		switch a.Status {
		case leave.ApprovalStatusApproved:
			approved++
			total++
		case leave.ApprovalStatusPending, leave.ApprovalStatusRejected:
			total++
		}
	}
	return approved, total
}

// Cancel implements leave.LeaveService.
func (l *LeaveServiceImpl) Cancel(ctx context.Context, req leave.CancelLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	var (
		request   leave.LeaveRequest
		approvals []leave.LeaveApproval
	)

	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		request, err = l.repos.Requests.GetByIDForUpdate(ctx, req.RequestID)
		if err != nil {
			return fmt.Errorf("failed to get leave request: %w", err)
		}
		if request.RequesterID != req.RequesterID {
			return leave.ErrNotRequestOwner
		}
		if request.Status != leave.LeaveRequestStatusPending {
			return leave.ErrCancelNotAllowed
		}

		approvals, err = l.repos.Approvals.GetByRequestID(ctx, request.ID)
		if err != nil {
			return fmt.Errorf("failed to get leave approvals: %w", err)
		}
		for _, a := range approvals {
			if a.Status == leave.ApprovalStatusApproved {
				return leave.ErrCancelNotAllowed
			}
		}

		now := l.now()
		comment := "Cancelled by requester: " + req.CancelReason
		if err := l.cancelPendingSteps(ctx, approvals, comment); err != nil {
			return err
		}

		reason := req.CancelReason
		request.Status = leave.LeaveRequestStatusCancelled
		request.CancelReason = &reason
		request.CancelledAt = &now
		request.UpdatedAt = now
		if err := l.repos.Requests.Update(ctx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	return l.toResponse(request, approvals, nil), nil
}

// cancelPendingSteps marks every pending step cancelled with comment. approvals is updated in place.
func (l *LeaveServiceImpl) cancelPendingSteps(ctx context.Context, approvals []leave.LeaveApproval, comment string) error {
	now := l.now()
	for i := range approvals {
		a := &approvals[i]
		if a.Status != leave.ApprovalStatusPending {
			continue
		}
		c := comment
		a.Status = leave.ApprovalStatusCancelled
		a.Comment = &c
		a.ActionAt = &now
		a.UpdatedAt = now
		if err := l.repos.Approvals.Update(ctx, *a); err != nil {
			return fmt.Errorf("failed to cancel leave approval: %w", err)
		}
	}
	return nil
}
