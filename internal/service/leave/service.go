package leave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/storage"
)

// ChainBuilder produces the approval chain for a requester.
type ChainBuilder interface {
	BuildChain(ctx context.Context, requester user.User) (workflow.Chain, error)
}

// AttachmentStore is the part of the file storage the leave flow needs.
type AttachmentStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)
}

type Repositories struct {
	LeaveTypes   leave.LeaveTypeRepository
	Requests     leave.LeaveRequestRepository
	Approvals    leave.LeaveApprovalRepository
	Attachments  leave.LeaveAttachmentRepository
	CodeSequence leave.LeaveCodeSequenceRepository
	Users        user.UserRepository
}

// Config controls escalation deadlines for new requests. DeadlineHour 0 means midnight.
type Config struct {
	Location     *time.Location
	DeadlineDays int
	DeadlineHour int
}

type LeaveServiceImpl struct {
	tx       database.Transactor
	repos    Repositories
	chains   ChainBuilder
	notifier notification.Notifier
	files    AttachmentStore
	config   Config
	now      func() time.Time
}

func NewLeaveService(
	tx database.Transactor,
	repos Repositories,
	chains ChainBuilder,
	notifier notification.Notifier,
	files AttachmentStore,
	cfg Config,
) *LeaveServiceImpl {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DeadlineDays == 0 {
		cfg.DeadlineDays = 2
	}
	return &LeaveServiceImpl{
		tx:       tx,
		repos:    repos,
		chains:   chains,
		notifier: notifier,
		files:    files,
		config:   cfg,
		now:      time.Now,
	}
}

var _ leave.LeaveService = (*LeaveServiceImpl)(nil)

// dispatch hands notifications collected during a committed transaction to the notifier.
func (l *LeaveServiceImpl) dispatch(ctx context.Context, notes []notification.CreateNotificationRequest) {
	if len(notes) == 0 || l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, notes...); err != nil {
		slog.Warn("Failed to dispatch leave notifications", "count", len(notes), "error", err)
	}
}

// GetLeaveRequest implements leave.LeaveService.
func (l *LeaveServiceImpl) GetLeaveRequest(ctx context.Context, requestID string, viewer leave.Viewer) (leave.LeaveRequestResponse, error) {
	request, err := l.repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to get leave request: %w", err)
	}

	approvals, err := l.repos.Approvals.GetByRequestID(ctx, request.ID)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to get leave approvals: %w", err)
	}

	if !canView(viewer, request, approvals) {
		return leave.LeaveRequestResponse{}, leave.ErrLeaveRequestAccessDenied
	}

	attachments, err := l.repos.Attachments.GetByRequestID(ctx, request.ID)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to get leave attachments: %w", err)
	}

	return l.toResponse(request, approvals, attachments), nil
}

// OpenAttachment implements leave.LeaveService.
func (l *LeaveServiceImpl) OpenAttachment(ctx context.Context, requestID, attachmentID string, viewer leave.Viewer) (leave.LeaveAttachment, io.ReadSeekCloser, error) {
	request, err := l.repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return leave.LeaveAttachment{}, nil, fmt.Errorf("failed to get leave request: %w", err)
	}

	approvals, err := l.repos.Approvals.GetByRequestID(ctx, request.ID)
	if err != nil {
		return leave.LeaveAttachment{}, nil, fmt.Errorf("failed to get leave approvals: %w", err)
	}
	if !canView(viewer, request, approvals) {
		return leave.LeaveAttachment{}, nil, leave.ErrLeaveRequestAccessDenied
	}

	attachments, err := l.repos.Attachments.GetByRequestID(ctx, request.ID)
	if err != nil {
		return leave.LeaveAttachment{}, nil, fmt.Errorf("failed to get leave attachments: %w", err)
	}
	idx := slices.IndexFunc(attachments, func(a leave.LeaveAttachment) bool { return a.ID == attachmentID })
	if idx < 0 || l.files == nil {
		return leave.LeaveAttachment{}, nil, leave.ErrLeaveAttachmentNotFound
	}
	attachment := attachments[idx]

	content, err := l.files.Open(ctx, attachment.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return leave.LeaveAttachment{}, nil, fmt.Errorf("%w: %s", leave.ErrLeaveAttachmentNotFound, attachment.FileName)
		}
		return leave.LeaveAttachment{}, nil, fmt.Errorf("failed to open leave attachment: %w", err)
	}
	return attachment, content, nil
}

func canView(viewer leave.Viewer, request leave.LeaveRequest, approvals []leave.LeaveApproval) bool {
	if viewer.UserID == request.RequesterID || user.HasPermission(viewer.Role, user.PermissionLeaveViewAll) {
		return true
	}
	for _, a := range approvals {
		if a.ApproverID == viewer.UserID {
			return true
		}
	}
	return false
}

// ListMyLeaveRequests implements leave.LeaveService.
func (l *LeaveServiceImpl) ListMyLeaveRequests(ctx context.Context, requesterID string, filter leave.MyLeaveRequestFilter) (leave.ListLeaveRequestResponse, error) {
	// Validate filter
	if err := filter.Validate(); err != nil {
		return leave.ListLeaveRequestResponse{}, err
	}

	requests, totalCount, err := l.repos.Requests.GetByRequesterID(ctx, requesterID, filter)
	if err != nil {
		return leave.ListLeaveRequestResponse{}, fmt.Errorf("failed to get my leave requests: %w", err)
	}

	responses := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, r := range requests {
		responses = append(responses, leave.ToLeaveRequestResponse(r))
	}

	// Calculate pagination metadata
	totalPages := int(math.Ceil(float64(totalCount) / float64(filter.Limit)))

	start := (filter.Page-1)*filter.Limit + 1
	end := start + len(responses) - 1
	if end > int(totalCount) {
		end = int(totalCount)
	}

	showing := fmt.Sprintf("%d-%d of %d results", start, end, totalCount)
	if totalCount == 0 || len(responses) == 0 {
		showing = fmt.Sprintf("0 of %d results", totalCount)
	}

	return leave.ListLeaveRequestResponse{
		TotalCount:    totalCount,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    totalPages,
		Showing:       showing,
		LeaveRequests: responses,
	}, nil
}

// ListPendingApprovals implements leave.LeaveService.
func (l *LeaveServiceImpl) ListPendingApprovals(ctx context.Context, approverID string) ([]leave.PendingApprovalResponse, error) {
	pending, err := l.repos.Approvals.GetPendingByApproverID(ctx, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending approvals: %w", err)
	}

	responses := make([]leave.PendingApprovalResponse, 0, len(pending))
	for _, p := range pending {
		responses = append(responses, leave.PendingApprovalResponse{
			ApprovalID:   p.Approval.ID,
			Level:        p.Approval.Level,
			NotifiedAt:   p.Approval.NotifiedAt,
			LeaveRequest: leave.ToLeaveRequestResponse(p.Request),
		})
	}
	return responses, nil
}

func (l *LeaveServiceImpl) toResponse(r leave.LeaveRequest, approvals []leave.LeaveApproval, attachments []leave.LeaveAttachment) leave.LeaveRequestResponse {
	resp := leave.ToLeaveRequestResponse(r)
	for _, a := range approvals {
		resp.Approvals = append(resp.Approvals, leave.ToLeaveApprovalResponse(a))
	}
	for _, a := range attachments {
		resp.Attachments = append(resp.Attachments, leave.LeaveAttachmentResponse{
			ID:       a.ID,
			FilePath: a.FilePath,
			FileName: a.FileName,
			URL:      a.DownloadPath(),
		})
	}
	return resp
}
