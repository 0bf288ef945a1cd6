package memory

import (
	"context"
	"slices"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
)

type LeaveTypeRepository struct{ s *Store }

func (s *Store) LeaveTypes() *LeaveTypeRepository { return &LeaveTypeRepository{s: s} }

func (r *LeaveTypeRepository) GetByID(_ context.Context, id string) (leave.LeaveType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.leaveTypes[id]
	if !ok {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
	}
	return t, nil
}

type LeaveRequestRepository struct{ s *Store }

func (s *Store) LeaveRequests() *LeaveRequestRepository { return &LeaveRequestRepository{s: s} }

func (r *LeaveRequestRepository) Create(_ context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if request.ID == "" {
		request.ID = r.s.newID("lr")
	}
	r.s.requests[request.ID] = request
	return request, nil
}

func (r *LeaveRequestRepository) GetByID(_ context.Context, id string) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return request, nil
}

func (r *LeaveRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *LeaveRequestRepository) GetByRequesterID(_ context.Context, requesterID string, filter leave.MyLeaveRequestFilter) ([]leave.LeaveRequest, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []leave.LeaveRequest
	for _, request := range r.s.requests {
		if request.RequesterID != requesterID {
			continue
		}
		if filter.Status != nil && string(request.Status) != *filter.Status {
			continue
		}
		matched = append(matched, request)
	}
	slices.SortFunc(matched, func(a, b leave.LeaveRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareString(a.ID, b.ID)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *LeaveRequestRepository) Update(_ context.Context, request leave.LeaveRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[request.ID]; !ok {
		return leave.ErrLeaveRequestNotFound
	}
	r.s.requests[request.ID] = request
	return nil
}

func (r *LeaveRequestRepository) FindEscalationCandidates(_ context.Context, now time.Time) ([]leave.LeaveRequest, error) {
	return r.find(func(request leave.LeaveRequest) bool {
		return !request.EscalationDeadline.After(now)
	}), nil
}

func (r *LeaveRequestRepository) FindReminderCandidates(_ context.Context, now, until time.Time) ([]leave.LeaveRequest, error) {
	return r.find(func(request leave.LeaveRequest) bool {
		return request.EscalationDeadline.After(now) && !request.EscalationDeadline.After(until)
	}), nil
}

func (r *LeaveRequestRepository) find(match func(leave.LeaveRequest) bool) []leave.LeaveRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []leave.LeaveRequest
	for _, request := range r.s.requests {
		if request.Status.IsActive() && !request.IsEscalated && match(request) {
			out = append(out, request)
		}
	}
	slices.SortFunc(out, func(a, b leave.LeaveRequest) int {
		if c := a.EscalationDeadline.Compare(b.EscalationDeadline); c != 0 {
			return c
		}
		return compareString(a.ID, b.ID)
	})
	return out
}

type LeaveApprovalRepository struct{ s *Store }

func (s *Store) LeaveApprovals() *LeaveApprovalRepository { return &LeaveApprovalRepository{s: s} }

func (r *LeaveApprovalRepository) Create(_ context.Context, approval leave.LeaveApproval) (leave.LeaveApproval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if approval.ID == "" {
		approval.ID = r.s.newID("la")
	}
	r.s.approvals = append(r.s.approvals, approval)
	return approval, nil
}

func (r *LeaveApprovalRepository) GetByRequestID(_ context.Context, requestID string) ([]leave.LeaveApproval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.approvalsOf(requestID), nil
}

func (r *LeaveApprovalRepository) Update(_ context.Context, approval leave.LeaveApproval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.approvals {
		if r.s.approvals[i].ID == approval.ID {
			r.s.approvals[i] = approval
			return nil
		}
	}
	return leave.ErrLeaveRequestNotFound
}

func (r *LeaveApprovalRepository) GetPendingByApproverID(_ context.Context, approverID string) ([]leave.PendingApproval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []leave.PendingApproval
	for _, a := range r.s.approvals {
		if a.ApproverID != approverID || a.Status != leave.ApprovalStatusPending {
			continue
		}
		request, ok := r.s.requests[a.LeaveRequestID]
		if !ok || !request.Status.IsActive() || request.CurrentLevel != a.Level {
			continue
		}
		out = append(out, leave.PendingApproval{Approval: a, Request: request})
	}
	return out, nil
}

type LeaveAttachmentRepository struct{ s *Store }

func (s *Store) LeaveAttachments() *LeaveAttachmentRepository { return &LeaveAttachmentRepository{s: s} }

func (r *LeaveAttachmentRepository) Create(_ context.Context, attachment leave.LeaveAttachment) (leave.LeaveAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if attachment.ID == "" {
		attachment.ID = r.s.newID("att")
	}
	r.s.attachments = append(r.s.attachments, attachment)
	return attachment, nil
}

func (r *LeaveAttachmentRepository) GetByRequestID(_ context.Context, requestID string) ([]leave.LeaveAttachment, error) {
	return r.s.AttachmentsOf(requestID), nil
}

type LeaveCodeSequenceRepository struct{ s *Store }

func (s *Store) LeaveCodeSequences() *LeaveCodeSequenceRepository {
	return &LeaveCodeSequenceRepository{s: s}
}

func (r *LeaveCodeSequenceRepository) NextValue(_ context.Context, prefix string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sequences[prefix]++
	return r.s.sequences[prefix], nil
}

var (
	_ leave.LeaveTypeRepository         = (*LeaveTypeRepository)(nil)
	_ leave.LeaveRequestRepository      = (*LeaveRequestRepository)(nil)
	_ leave.LeaveApprovalRepository     = (*LeaveApprovalRepository)(nil)
	_ leave.LeaveAttachmentRepository   = (*LeaveAttachmentRepository)(nil)
	_ leave.LeaveCodeSequenceRepository = (*LeaveCodeSequenceRepository)(nil)
)
