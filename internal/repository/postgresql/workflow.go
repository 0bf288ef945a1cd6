package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type workflowRepositoryImpl struct {
	db *database.DB
}

func NewWorkflowRepository(db *database.DB) workflow.WorkflowRepository {
	return &workflowRepositoryImpl{db: db}
}

// FindActiveWorkflow matches a section scope on section_id alone; other scopes match the
// department exactly (nil matches NULL) among workflows without a section.
func (r *workflowRepositoryImpl) FindActiveWorkflow(ctx context.Context, scope workflow.Scope) (workflow.ApprovalWorkflow, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, company_id, department_id, section_id, is_active, created_at, updated_at
		FROM approval_workflows
		WHERE company_id = $1
		  AND is_active = true
		  AND CASE WHEN $3::uuid IS NULL
		           THEN section_id IS NULL AND department_id IS NOT DISTINCT FROM $2
		           ELSE section_id = $3
		      END
		ORDER BY created_at DESC
		LIMIT 1
	`

	var wf workflow.ApprovalWorkflow
	err := q.QueryRow(ctx, query, scope.CompanyID, scope.DepartmentID, scope.SectionID).Scan(
		&wf.ID, &wf.Name, &wf.CompanyID, &wf.DepartmentID, &wf.SectionID,
		&wf.IsActive, &wf.CreatedAt, &wf.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workflow.ApprovalWorkflow{}, workflow.ErrWorkflowNotFound
		}
		return workflow.ApprovalWorkflow{}, fmt.Errorf("failed to get approval workflow: %w", err)
	}

	stepsQuery := `
		SELECT id, workflow_id, level, approver_id, approver_role
		FROM approval_workflow_steps
		WHERE workflow_id = $1
		ORDER BY level
	`

	rows, err := q.Query(ctx, stepsQuery, wf.ID)
	if err != nil {
		return workflow.ApprovalWorkflow{}, fmt.Errorf("failed to query workflow steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step workflow.ApprovalWorkflowStep
		if err := rows.Scan(&step.ID, &step.WorkflowID, &step.Level, &step.ApproverID, &step.ApproverRole); err != nil {
			return workflow.ApprovalWorkflow{}, fmt.Errorf("failed to scan workflow step: %w", err)
		}
		wf.Steps = append(wf.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return workflow.ApprovalWorkflow{}, fmt.Errorf("failed to iterate workflow steps: %w", err)
	}

	return wf, nil
}

func (r *workflowRepositoryImpl) FindUserApprovalFlow(ctx context.Context, userID string) ([]workflow.UserApprovalFlow, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, user_id, level, approver_id, is_required, is_active
		FROM user_approval_flows
		WHERE user_id = $1 AND is_active = true
		ORDER BY level
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user approval flow: %w", err)
	}
	defer rows.Close()

	var flows []workflow.UserApprovalFlow
	for rows.Next() {
		var f workflow.UserApprovalFlow
		if err := rows.Scan(&f.ID, &f.UserID, &f.Level, &f.ApproverID, &f.IsRequired, &f.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan user approval flow: %w", err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user approval flow: %w", err)
	}

	return flows, nil
}
