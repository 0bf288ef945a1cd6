package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
)

type leaveApprovalRepositoryImpl struct {
	db *database.DB
}

func NewLeaveApprovalRepository(db *database.DB) leave.LeaveApprovalRepository {
	return &leaveApprovalRepositoryImpl{db: db}
}

func (r *leaveApprovalRepositoryImpl) Create(ctx context.Context, approval leave.LeaveApproval) (leave.LeaveApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_approvals (
			id, leave_request_id, level, approver_id, status, comment,
			action_at, notified_at, reminder_count, created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		) RETURNING id
	`

	err := q.QueryRow(ctx, query,
		approval.LeaveRequestID, approval.Level, approval.ApproverID, string(approval.Status), approval.Comment,
		approval.ActionAt, approval.NotifiedAt, approval.ReminderCount, approval.CreatedAt, approval.UpdatedAt,
	).Scan(&approval.ID)
	if err != nil {
		return leave.LeaveApproval{}, fmt.Errorf("failed to create leave approval: %w", err)
	}

	return approval, nil
}

// GetByRequestID returns the chain ordered by level, with approver names.
func (r *leaveApprovalRepositoryImpl) GetByRequestID(ctx context.Context, requestID string) ([]leave.LeaveApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT la.id, la.leave_request_id, la.level, la.approver_id, la.status, la.comment,
			   la.action_at, la.notified_at, la.reminder_count, la.created_at, la.updated_at,
			   u.full_name
		FROM leave_approvals la
		LEFT JOIN users u ON la.approver_id = u.id
		WHERE la.leave_request_id = $1
		ORDER BY la.level, la.created_at
	`

	rows, err := q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave approvals: %w", err)
	}
	defer rows.Close()

	var approvals []leave.LeaveApproval
	for rows.Next() {
		var a leave.LeaveApproval
		var status string
		if err := rows.Scan(
			&a.ID, &a.LeaveRequestID, &a.Level, &a.ApproverID, &status, &a.Comment,
			&a.ActionAt, &a.NotifiedAt, &a.ReminderCount, &a.CreatedAt, &a.UpdatedAt,
			&a.ApproverName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave approval: %w", err)
		}
		a.Status = leave.ApprovalStatus(status)
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave approvals: %w", err)
	}

	return approvals, nil
}

func (r *leaveApprovalRepositoryImpl) Update(ctx context.Context, approval leave.LeaveApproval) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_approvals SET
			status = $1, comment = $2, action_at = $3, notified_at = $4, reminder_count = $5, updated_at = $6
		WHERE id = $7
	`

	tag, err := q.Exec(ctx, query,
		string(approval.Status), approval.Comment, approval.ActionAt, approval.NotifiedAt,
		approval.ReminderCount, approval.UpdatedAt, approval.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("leave approval %s not found", approval.ID)
	}
	return nil
}

// GetPendingByApproverID only returns steps that are the active level of an in-flight request.
func (r *leaveApprovalRepositoryImpl) GetPendingByApproverID(ctx context.Context, approverID string) ([]leave.PendingApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT la.id, la.leave_request_id, la.level, la.approver_id, la.status, la.comment,
			   la.action_at, la.notified_at, la.reminder_count, la.created_at, la.updated_at,
			   lr.id, lr.leave_code, lr.requester_id, lr.leave_type_id,
			   lr.start_date, lr.end_date, lr.total_days, lr.reason,
			   lr.status, lr.current_level, lr.escalation_deadline, lr.is_escalated,
			   lr.created_at, lr.updated_at,
			   u.full_name, lt.name
		FROM leave_approvals la
		JOIN leave_requests lr ON la.leave_request_id = lr.id
		JOIN users u ON lr.requester_id = u.id
		JOIN leave_types lt ON lr.leave_type_id = lt.id
		WHERE la.approver_id = $1
		  AND la.status = 'pending'
		  AND la.level = lr.current_level
		  AND lr.status IN ('pending', 'in_progress')
		ORDER BY lr.escalation_deadline, lr.id
	`

	rows, err := q.Query(ctx, query, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}
	defer rows.Close()

	var pending []leave.PendingApproval
	for rows.Next() {
		var p leave.PendingApproval
		var approvalStatus, requestStatus, requesterName, leaveTypeName string
		if err := rows.Scan(
			&p.Approval.ID, &p.Approval.LeaveRequestID, &p.Approval.Level, &p.Approval.ApproverID, &approvalStatus, &p.Approval.Comment,
			&p.Approval.ActionAt, &p.Approval.NotifiedAt, &p.Approval.ReminderCount, &p.Approval.CreatedAt, &p.Approval.UpdatedAt,
			&p.Request.ID, &p.Request.LeaveCode, &p.Request.RequesterID, &p.Request.LeaveTypeID,
			&p.Request.StartDate, &p.Request.EndDate, &p.Request.TotalDays, &p.Request.Reason,
			&requestStatus, &p.Request.CurrentLevel, &p.Request.EscalationDeadline, &p.Request.IsEscalated,
			&p.Request.CreatedAt, &p.Request.UpdatedAt,
			&requesterName, &leaveTypeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		p.Approval.Status = leave.ApprovalStatus(approvalStatus)
		p.Request.Status = leave.LeaveRequestStatus(requestStatus)
		p.Request.RequesterName = &requesterName
		p.Request.LeaveTypeName = &leaveTypeName
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending approvals: %w", err)
	}

	return pending, nil
}
