package workflow

import "context"

type WorkflowRepository interface {
	// FindActiveWorkflow returns the active workflow for scope, with steps ordered by level. A section
	// scope matches on section alone; otherwise the department must match exactly.
	// ErrWorkflowNotFound when none exists.
	FindActiveWorkflow(ctx context.Context, scope Scope) (ApprovalWorkflow, error)
	// FindUserApprovalFlow returns the active flow rows for userID ordered by level.
	FindUserApprovalFlow(ctx context.Context, userID string) ([]UserApprovalFlow, error)
}
