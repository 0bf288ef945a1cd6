package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
)

type leaveAttachmentRepositoryImpl struct {
	db *database.DB
}

func NewLeaveAttachmentRepository(db *database.DB) leave.LeaveAttachmentRepository {
	return &leaveAttachmentRepositoryImpl{db: db}
}

func (r *leaveAttachmentRepositoryImpl) Create(ctx context.Context, attachment leave.LeaveAttachment) (leave.LeaveAttachment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_attachments (id, leave_request_id, file_path, file_name, created_at)
		VALUES (uuidv7(), $1, $2, $3, $4)
		RETURNING id
	`

	err := q.QueryRow(ctx, query,
		attachment.LeaveRequestID, attachment.FilePath, attachment.FileName, attachment.CreatedAt,
	).Scan(&attachment.ID)
	if err != nil {
		return leave.LeaveAttachment{}, fmt.Errorf("failed to create leave attachment: %w", err)
	}

	return attachment, nil
}

func (r *leaveAttachmentRepositoryImpl) GetByRequestID(ctx context.Context, requestID string) ([]leave.LeaveAttachment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, leave_request_id, file_path, file_name, created_at
		FROM leave_attachments
		WHERE leave_request_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave attachments: %w", err)
	}
	defer rows.Close()

	var attachments []leave.LeaveAttachment
	for rows.Next() {
		var a leave.LeaveAttachment
		if err := rows.Scan(&a.ID, &a.LeaveRequestID, &a.FilePath, &a.FileName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leave attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave attachments: %w", err)
	}

	return attachments, nil
}
