package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
)

type leaveCodeSequenceRepositoryImpl struct {
	db *database.DB
}

func NewLeaveCodeSequenceRepository(db *database.DB) leave.LeaveCodeSequenceRepository {
	return &leaveCodeSequenceRepositoryImpl{db: db}
}

// NextValue increments the counter for prefix atomically, starting at 1.
func (r *leaveCodeSequenceRepositoryImpl) NextValue(ctx context.Context, prefix string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_code_sequences (prefix, last_value)
		VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE
		SET last_value = leave_code_sequences.last_value + 1
		RETURNING last_value
	`

	var next int
	if err := q.QueryRow(ctx, query, prefix).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to advance leave code sequence %s: %w", prefix, err)
	}
	return next, nil
}
