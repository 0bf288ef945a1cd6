package leave

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Submit implements leave.LeaveService.
func (l *LeaveServiceImpl) Submit(ctx context.Context, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	requester, err := l.repos.Users.GetByID(ctx, req.RequesterID)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to get requester: %w", err)
	}
	if !requester.IsActive {
		return leave.LeaveRequestResponse{}, user.ErrUserInactive
	}

	leaveType, err := l.activeLeaveType(ctx, req.LeaveTypeID, requester)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	if leaveType.MaxDaysPerRequest != nil && req.TotalDays.GreaterThan(decimal.NewFromInt(int64(*leaveType.MaxDaysPerRequest))) {
		return leave.LeaveRequestResponse{}, leave.ErrMaxDaysExceeded
	}
	if leaveType.RequiresAttachment && len(req.Attachments) == 0 {
		return leave.LeaveRequestResponse{}, leave.ErrAttachmentRequired
	}
	if err := l.checkAttachments(ctx, requester.ID, req.Attachments); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	// Validate() already checked the format.
	startDate, _ := time.Parse(time.DateOnly, req.StartDate)
	endDate, _ := time.Parse(time.DateOnly, req.EndDate)

	var (
		created     leave.LeaveRequest
		approvals   []leave.LeaveApproval
		attachments []leave.LeaveAttachment
		notes       []notification.CreateNotificationRequest
	)

	err = l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		chain, err := l.chains.BuildChain(ctx, requester)
		if err != nil {
			return fmt.Errorf("failed to build approval chain: %w", err)
		}
		if len(chain) == 0 {
			return leave.ErrNoApproverAvailable
		}
		chain = slices.Clone(chain)
		slices.SortStableFunc(chain, func(a, b workflow.Step) int { return a.Level - b.Level })

		now := l.now()
		code, err := l.nextLeaveCode(ctx, leaveType.Code, now)
		if err != nil {
			return err
		}

		created, err = l.repos.Requests.Create(ctx, leave.LeaveRequest{
			LeaveCode:          code,
			RequesterID:        requester.ID,
			LeaveTypeID:        leaveType.ID,
			StartDate:          startDate,
			EndDate:            endDate,
			TotalDays:          req.TotalDays,
			Reason:             req.Reason,
			Status:             leave.LeaveRequestStatusPending,
			CurrentLevel:       chain[0].Level,
			EscalationDeadline: leave.EscalationDeadline(now, l.config.Location, l.config.DeadlineDays, l.config.DeadlineHour),
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		if err != nil {
			return fmt.Errorf("failed to create leave request: %w", err)
		}

		for i, step := range chain {
			approval := leave.LeaveApproval{
				LeaveRequestID: created.ID,
				Level:          step.Level,
				ApproverID:     step.ApproverID,
				Status:         leave.ApprovalStatusPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if i == 0 {
				approval.NotifiedAt = &now
			}
			approval, err = l.repos.Approvals.Create(ctx, approval)
			if err != nil {
				return fmt.Errorf("failed to create leave approval: %w", err)
			}
			approvals = append(approvals, approval)
		}

		for _, a := range req.Attachments {
			attachment, err := l.repos.Attachments.Create(ctx, leave.LeaveAttachment{
				LeaveRequestID: created.ID,
				FilePath:       a.FilePath,
				FileName:       a.FileName,
				CreatedAt:      now,
			})
			if err != nil {
				return fmt.Errorf("failed to create leave attachment: %w", err)
			}
			attachments = append(attachments, attachment)
		}

		notes = append(notes,
			leave.ApprovalPendingNotification(chain[0].ApproverID, created),
			leave.SubmittedNotification(created),
		)
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	l.dispatch(ctx, notes)

	return l.toResponse(created, approvals, attachments), nil
}

// activeLeaveType loads a leave type usable by requester.
func (l *LeaveServiceImpl) activeLeaveType(ctx context.Context, id string, requester user.User) (leave.LeaveType, error) {
	leaveType, err := l.repos.LeaveTypes.GetByID(ctx, id)
	if err != nil {
		return leave.LeaveType{}, fmt.Errorf("failed to get leave type: %w", err)
	}
	if leaveType.CompanyID != requester.CompanyID {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	if !leaveType.IsActive {
		return leave.LeaveType{}, leave.ErrLeaveTypeInactive
	}
	return leaveType, nil
}

// checkAttachments only accepts files under the requester's own upload prefix.
func (l *LeaveServiceImpl) checkAttachments(ctx context.Context, requesterID string, attachments []leave.AttachmentInput) error {
	prefix := path.Join("leave", requesterID) + "/"
	for _, a := range attachments {
		if !strings.HasPrefix(path.Clean(a.FilePath), prefix) {
			return fmt.Errorf("%w: %s", leave.ErrAttachmentNotOwned, a.FileName)
		}
	}
	if l.files == nil {
		return nil
	}
	for _, a := range attachments {
		ok, err := l.files.Exists(ctx, a.FilePath)
		if err != nil {
			return fmt.Errorf("failed to check attachment %q: %w", a.FilePath, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", leave.ErrAttachmentNotFound, a.FileName)
		}
	}
	return nil
}

// nextLeaveCode allocates {typeCode}{YY}{MM}{NNN} from the per-prefix counter.
func (l *LeaveServiceImpl) nextLeaveCode(ctx context.Context, typeCode string, at time.Time) (string, error) {
	prefix := leave.LeaveCodePrefix(typeCode, at.In(l.config.Location))
	seq, err := l.repos.CodeSequence.NextValue(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to allocate leave code: %w", err)
	}
	return leave.FormatLeaveCode(prefix, seq), nil
}
