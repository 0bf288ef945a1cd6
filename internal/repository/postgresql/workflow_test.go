package postgresql

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowRepository_FindActiveWorkflow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowRepository(db)

	now := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	dept := "d1"
	role := "dept_manager"
	fixed := "sup"

	mock.ExpectQuery(`FROM approval_workflows\s+WHERE company_id = \$1\s+AND is_active = true\s+AND CASE WHEN \$3::uuid IS NULL`).
		WithArgs("c1", &dept, (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "company_id", "department_id", "section_id", "is_active", "created_at", "updated_at"}).
			AddRow("wf-1", "Ops", "c1", &dept, (*string)(nil), true, now, now))
	mock.ExpectQuery(`FROM approval_workflow_steps`).
		WithArgs("wf-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "workflow_id", "level", "approver_id", "approver_role"}).
			AddRow("s1", "wf-1", 1, &fixed, (*string)(nil)).
			AddRow("s2", "wf-1", 2, (*string)(nil), &role))

	wf, err := repo.FindActiveWorkflow(context.Background(), workflow.Scope{CompanyID: "c1", DepartmentID: &dept})

	require.NoError(t, err)
	assert.Equal(t, "wf-1", wf.ID)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "sup", *wf.Steps[0].ApproverID)
	assert.Nil(t, wf.Steps[0].ApproverRole)
	assert.Equal(t, "dept_manager", *wf.Steps[1].ApproverRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowRepository_FindActiveWorkflow_SectionScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowRepository(db)

	now := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	section := "s1"

	mock.ExpectQuery(`ELSE section_id = \$3`).
		WithArgs("c1", (*string)(nil), &section).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "company_id", "department_id", "section_id", "is_active", "created_at", "updated_at"}).
			AddRow("wf-s", "Packing", "c1", (*string)(nil), &section, true, now, now))
	mock.ExpectQuery(`FROM approval_workflow_steps`).
		WithArgs("wf-s").
		WillReturnRows(pgxmock.NewRows([]string{"id", "workflow_id", "level", "approver_id", "approver_role"}))

	wf, err := repo.FindActiveWorkflow(context.Background(), workflow.Scope{CompanyID: "c1", SectionID: &section})

	require.NoError(t, err)
	assert.Equal(t, "wf-s", wf.ID)
	assert.Nil(t, wf.DepartmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowRepository_FindActiveWorkflow_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowRepository(db)

	mock.ExpectQuery(`FROM approval_workflows`).
		WithArgs("c1", (*string)(nil), (*string)(nil)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindActiveWorkflow(context.Background(), workflow.Scope{CompanyID: "c1"})

	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowRepository_FindUserApprovalFlow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkflowRepository(db)

	mock.ExpectQuery(`FROM user_approval_flows\s+WHERE user_id = \$1 AND is_active = true\s+ORDER BY level`).
		WithArgs("emp").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "level", "approver_id", "is_required", "is_active"}).
			AddRow("f1", "emp", 1, "sup", true, true).
			AddRow("f2", "emp", 2, "mgr", false, true))

	flows, err := repo.FindUserApprovalFlow(context.Background(), "emp")

	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "mgr", flows[1].ApproverID)
	assert.False(t, flows[1].IsRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}
