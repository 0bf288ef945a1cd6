package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/shopspring/decimal"
)

var splitTolerance = decimal.New(1, -2)

// Split implements leave.LeaveService.
func (l *LeaveServiceImpl) Split(ctx context.Context, req leave.SplitLeaveRequestRequest) (leave.SplitLeaveRequestResponse, error) {
	hrManager, err := l.repos.Users.GetByID(ctx, req.HRManagerID)
	if err != nil {
		return leave.SplitLeaveRequestResponse{}, fmt.Errorf("failed to get hr manager: %w", err)
	}
	if !hrManager.IsHRManager() || !hrManager.IsActive {
		return leave.SplitLeaveRequestResponse{}, leave.ErrHRManagerRequired
	}

	if err := req.Validate(); err != nil {
		return leave.SplitLeaveRequestResponse{}, err
	}

	var (
		original          leave.LeaveRequest
		originalApprovals []leave.LeaveApproval
		splits            []leave.LeaveRequestResponse
		notes             []notification.CreateNotificationRequest
	)

	err = l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		original, err = l.repos.Requests.GetByIDForUpdate(ctx, req.RequestID)
		if err != nil {
			return fmt.Errorf("failed to get leave request: %w", err)
		}
		if !original.Status.IsActive() {
			return leave.ErrLeaveRequestAlreadyProcessed
		}
		if original.TotalDays.Sub(req.SplitTotal()).Abs().GreaterThan(splitTolerance) {
			return leave.ErrSplitTotalMismatch
		}

		requester, err := l.repos.Users.GetByID(ctx, original.RequesterID)
		if err != nil {
			return fmt.Errorf("failed to get requester: %w", err)
		}
		types := make([]leave.LeaveType, len(req.Splits))
		for i, part := range req.Splits {
			types[i], err = l.activeLeaveType(ctx, part.LeaveTypeID, requester)
			if err != nil {
				return err
			}
		}

		originalApprovals, err = l.repos.Approvals.GetByRequestID(ctx, original.ID)
		if err != nil {
			return fmt.Errorf("failed to get leave approvals: %w", err)
		}
		attachments, err := l.repos.Attachments.GetByRequestID(ctx, original.ID)
		if err != nil {
			return fmt.Errorf("failed to get leave attachments: %w", err)
		}

		// Validation is done; mutations start here.
		now := l.now()
		comment := fmt.Sprintf("Split into %d requests by HR", len(req.Splits))
		if err := l.cancelPendingSteps(ctx, originalApprovals, comment); err != nil {
			return err
		}

		reason := comment
		if req.Comment != nil && *req.Comment != "" {
			reason += ": " + *req.Comment
		}
		original.Status = leave.LeaveRequestStatusCancelled
		original.CancelReason = &reason
		original.CancelledAt = &now
		original.UpdatedAt = now
		if err := l.repos.Requests.Update(ctx, original); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}

		for i, part := range req.Splits {
			created, approval, copied, err := l.createSplitPart(ctx, original, part, types[i], hrManager.ID, req.Comment, attachments, now)
			if err != nil {
				return err
			}
			splits = append(splits, l.toResponse(created, []leave.LeaveApproval{approval}, copied))
			notes = append(notes, leave.ApprovedNotification(created))
		}
		return nil
	})
	if err != nil {
		return leave.SplitLeaveRequestResponse{}, err
	}

	l.dispatch(ctx, notes)

	return leave.SplitLeaveRequestResponse{
		Original: l.toResponse(original, originalApprovals, nil),
		Splits:   splits,
	}, nil
}

// createSplitPart inserts one replacement request, already approved at the HR level.
func (l *LeaveServiceImpl) createSplitPart(
	ctx context.Context,
	original leave.LeaveRequest,
	part leave.SplitPart,
	leaveType leave.LeaveType,
	hrManagerID string,
	comment *string,
	attachments []leave.LeaveAttachment,
	now time.Time,
) (leave.LeaveRequest, leave.LeaveApproval, []leave.LeaveAttachment, error) {
	// Validate() already checked the format.
	startDate, _ := time.Parse(time.DateOnly, part.StartDate)
	endDate, _ := time.Parse(time.DateOnly, part.EndDate)

	code, err := l.nextLeaveCode(ctx, leaveType.Code, now)
	if err != nil {
		return leave.LeaveRequest{}, leave.LeaveApproval{}, nil, err
	}

	reason := original.Reason
	if part.Reason != nil && *part.Reason != "" {
		reason = *part.Reason
	}
	splitFrom := original.ID
	approvedBy := hrManagerID

	created, err := l.repos.Requests.Create(ctx, leave.LeaveRequest{
		LeaveCode:          code,
		RequesterID:        original.RequesterID,
		LeaveTypeID:        leaveType.ID,
		StartDate:          startDate,
		EndDate:            endDate,
		TotalDays:          part.TotalDays,
		Reason:             reason,
		Status:             leave.LeaveRequestStatusApproved,
		CurrentLevel:       leave.HRLevel,
		EscalationDeadline: leave.EscalationDeadline(now, l.config.Location, l.config.DeadlineDays, l.config.DeadlineHour),
		FinalApprovedBy:    &approvedBy,
		FinalApprovedAt:    &now,
		SplitFromID:        &splitFrom,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return leave.LeaveRequest{}, leave.LeaveApproval{}, nil, fmt.Errorf("failed to create split leave request: %w", err)
	}

	approval, err := l.repos.Approvals.Create(ctx, leave.LeaveApproval{
		LeaveRequestID: created.ID,
		Level:          leave.HRLevel,
		ApproverID:     hrManagerID,
		Status:         leave.ApprovalStatusApproved,
		Comment:        comment,
		ActionAt:       &now,
		NotifiedAt:     &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return leave.LeaveRequest{}, leave.LeaveApproval{}, nil, fmt.Errorf("failed to create split leave approval: %w", err)
	}

	copied := make([]leave.LeaveAttachment, 0, len(attachments))
	for _, a := range attachments {
		c, err := l.repos.Attachments.Create(ctx, leave.LeaveAttachment{
			LeaveRequestID: created.ID,
			FilePath:       a.FilePath,
			FileName:       a.FileName,
			CreatedAt:      now,
		})
		if err != nil {
			return leave.LeaveRequest{}, leave.LeaveApproval{}, nil, fmt.Errorf("failed to copy leave attachment: %w", err)
		}
		copied = append(copied, c)
	}

	return created, approval, copied, nil
}
