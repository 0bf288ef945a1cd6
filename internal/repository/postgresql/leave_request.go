package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const leaveRequestSelect = `
	SELECT lr.id, lr.leave_code, lr.requester_id, lr.leave_type_id,
		   lr.start_date, lr.end_date, lr.total_days, lr.reason,
		   lr.status, lr.current_level, lr.escalation_deadline, lr.is_escalated,
		   lr.final_approved_by, lr.final_approved_at, lr.final_rejected_by, lr.final_rejected_at, lr.reject_reason,
		   lr.cancel_reason, lr.cancelled_at, lr.split_from_id,
		   lr.created_at, lr.updated_at,
		   u.full_name, lt.name, u.company_id
	FROM leave_requests lr
	JOIN users u ON lr.requester_id = u.id
	JOIN leave_types lt ON lr.leave_type_id = lt.id
`

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

func (r *leaveRequestRepositoryImpl) Create(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_requests (
			id, leave_code, requester_id, leave_type_id,
			start_date, end_date, total_days, reason,
			status, current_level, escalation_deadline, is_escalated,
			final_approved_by, final_approved_at,
			cancel_reason, cancelled_at, split_from_id,
			created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13,
			$14, $15, $16,
			$17, $18
		) RETURNING id
	`

	err := q.QueryRow(ctx, query,
		request.LeaveCode, request.RequesterID, request.LeaveTypeID,
		request.StartDate, request.EndDate, request.TotalDays, request.Reason,
		string(request.Status), request.CurrentLevel, request.EscalationDeadline, request.IsEscalated,
		request.FinalApprovedBy, request.FinalApprovedAt,
		request.CancelReason, request.CancelledAt, request.SplitFromID,
		request.CreatedAt, request.UpdatedAt,
	).Scan(&request.ID)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("failed to create leave request: %w", err)
	}

	return request, nil
}

func (r *leaveRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.getOne(ctx, leaveRequestSelect+` WHERE lr.id = $1`, id)
}

func (r *leaveRequestRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (leave.LeaveRequest, error) {
	return r.getOne(ctx, leaveRequestSelect+` WHERE lr.id = $1 FOR UPDATE OF lr`, id)
}

func (r *leaveRequestRepositoryImpl) getOne(ctx context.Context, query, id string) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	req, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, fmt.Errorf("failed to get leave request: %w", err)
	}
	return req, nil
}

func (r *leaveRequestRepositoryImpl) GetByRequesterID(ctx context.Context, requesterID string, filter leave.MyLeaveRequestFilter) ([]leave.LeaveRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClause := "WHERE lr.requester_id = $1"
	args := []interface{}{requesterID}
	argIndex := 2

	if filter.Status != nil {
		whereClause += fmt.Sprintf(" AND lr.status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM leave_requests lr " + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leave requests: %w", err)
	}

	query := leaveRequestSelect + whereClause +
		fmt.Sprintf(" ORDER BY lr.created_at DESC, lr.id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	requests, err := r.queryMany(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Update persists the mutable workflow columns.
func (r *leaveRequestRepositoryImpl) Update(ctx context.Context, request leave.LeaveRequest) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE leave_requests SET
			status = $1, current_level = $2, escalation_deadline = $3, is_escalated = $4,
			final_approved_by = $5, final_approved_at = $6,
			final_rejected_by = $7, final_rejected_at = $8, reject_reason = $9,
			cancel_reason = $10, cancelled_at = $11,
			updated_at = $12
		WHERE id = $13
	`

	tag, err := q.Exec(ctx, query,
		string(request.Status), request.CurrentLevel, request.EscalationDeadline, request.IsEscalated,
		request.FinalApprovedBy, request.FinalApprovedAt,
		request.FinalRejectedBy, request.FinalRejectedAt, request.RejectReason,
		request.CancelReason, request.CancelledAt,
		request.UpdatedAt,
		request.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrLeaveRequestNotFound
	}
	return nil
}

func (r *leaveRequestRepositoryImpl) FindEscalationCandidates(ctx context.Context, now time.Time) ([]leave.LeaveRequest, error) {
	query := leaveRequestSelect + `
		WHERE lr.status IN ('pending', 'in_progress')
		  AND lr.is_escalated = false
		  AND lr.escalation_deadline <= $1
		ORDER BY lr.escalation_deadline, lr.id
	`
	return r.queryMany(ctx, query, now)
}

func (r *leaveRequestRepositoryImpl) FindReminderCandidates(ctx context.Context, now, until time.Time) ([]leave.LeaveRequest, error) {
	query := leaveRequestSelect + `
		WHERE lr.status IN ('pending', 'in_progress')
		  AND lr.is_escalated = false
		  AND lr.escalation_deadline > $1
		  AND lr.escalation_deadline <= $2
		ORDER BY lr.escalation_deadline, lr.id
	`
	return r.queryMany(ctx, query, now, until)
}

func (r *leaveRequestRepositoryImpl) queryMany(ctx context.Context, query string, args ...interface{}) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		req, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave requests: %w", err)
	}
	return requests, nil
}

func scanLeaveRequest(row pgx.Row) (leave.LeaveRequest, error) {
	var req leave.LeaveRequest
	var status string
	var requesterName, leaveTypeName, companyID string

	err := row.Scan(
		&req.ID, &req.LeaveCode, &req.RequesterID, &req.LeaveTypeID,
		&req.StartDate, &req.EndDate, &req.TotalDays, &req.Reason,
		&status, &req.CurrentLevel, &req.EscalationDeadline, &req.IsEscalated,
		&req.FinalApprovedBy, &req.FinalApprovedAt, &req.FinalRejectedBy, &req.FinalRejectedAt, &req.RejectReason,
		&req.CancelReason, &req.CancelledAt, &req.SplitFromID,
		&req.CreatedAt, &req.UpdatedAt,
		&requesterName, &leaveTypeName, &companyID,
	)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	req.Status = leave.LeaveRequestStatus(status)
	req.RequesterName = &requesterName
	req.LeaveTypeName = &leaveTypeName
	req.CompanyID = &companyID
	return req, nil
}
