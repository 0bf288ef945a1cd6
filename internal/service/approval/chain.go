package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
)

// ChainBuilder selects the routing strategy for a requester and materializes its approval chain.
type ChainBuilder struct {
	resolver  *Resolver
	workflows workflow.WorkflowRepository
}

func NewChainBuilder(resolver *Resolver, workflows workflow.WorkflowRepository) *ChainBuilder {
	return &ChainBuilder{
		resolver:  resolver,
		workflows: workflows,
	}
}

// BuildChain returns the ordered approval steps for requester. An empty chain means nobody can approve.
func (b *ChainBuilder) BuildChain(ctx context.Context, requester user.User) (workflow.Chain, error) {
	// Department managers go straight to HR.
	if requester.Role == user.RoleDeptManager {
		chain, err := b.hrChain(ctx, requester)
		if err != nil || len(chain) > 0 {
			return chain, err
		}
		return b.fallbackChain(ctx, requester)
	}

	chain, found, err := b.userFlowChain(ctx, requester)
	if err != nil {
		return nil, err
	}
	if found {
		if len(chain) > 0 {
			return chain, nil
		}
		chain, err = b.hrChain(ctx, requester)
		if err != nil || len(chain) > 0 {
			return chain, err
		}
		return b.fallbackChain(ctx, requester)
	}

	chain, err = b.workflowChain(ctx, requester)
	if err != nil {
		return nil, err
	}
	if len(chain) > 0 {
		return chain, nil
	}

	return b.fallbackChain(ctx, requester)
}

// userFlowChain reports found=true when the requester has an active personal flow, even if
// every step of it had to be dropped.
func (b *ChainBuilder) userFlowChain(ctx context.Context, requester user.User) (workflow.Chain, bool, error) {
	flows, err := b.workflows.FindUserApprovalFlow(ctx, requester.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user approval flow: %w", err)
	}
	if len(flows) == 0 {
		return nil, false, nil
	}

	chain := make(workflow.Chain, 0, len(flows))
	for _, f := range flows {
		if f.ApproverID == requester.ID {
			slog.Warn("Approval step omitted: approver is the requester", "user_id", requester.ID, "level", f.Level)
			continue
		}
		chain = append(chain, workflow.Step{Level: f.Level, ApproverID: f.ApproverID})
	}
	return chain, true, nil
}

func (b *ChainBuilder) workflowChain(ctx context.Context, requester user.User) (workflow.Chain, error) {
	wf, err := b.findWorkflow(ctx, requester)
	if errors.Is(err, workflow.ErrWorkflowNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	chain := make(workflow.Chain, 0, len(wf.Steps))
	for _, step := range wf.Steps {
		approverID, err := b.resolveStep(ctx, step, requester)
		if err != nil {
			return nil, err
		}
		if approverID == "" {
			continue
		}
		chain = append(chain, workflow.Step{Level: step.Level, ApproverID: approverID})
	}
	return chain, nil
}

// findWorkflow tries section, then department, then company scope.
func (b *ChainBuilder) findWorkflow(ctx context.Context, requester user.User) (workflow.ApprovalWorkflow, error) {
	scopes := make([]workflow.Scope, 0, 3)
	if requester.SectionID != nil {
		scopes = append(scopes, workflow.Scope{
			CompanyID: requester.CompanyID,
			SectionID: requester.SectionID,
		})
	}
	scopes = append(scopes,
		workflow.Scope{CompanyID: requester.CompanyID, DepartmentID: &requester.DepartmentID},
		workflow.Scope{CompanyID: requester.CompanyID},
	)

	for _, scope := range scopes {
		wf, err := b.workflows.FindActiveWorkflow(ctx, scope)
		if errors.Is(err, workflow.ErrWorkflowNotFound) {
			continue
		}
		if err != nil {
			return workflow.ApprovalWorkflow{}, fmt.Errorf("failed to find approval workflow: %w", err)
		}
		return wf, nil
	}
	return workflow.ApprovalWorkflow{}, workflow.ErrWorkflowNotFound
}

// resolveStep returns "" when the step has to be omitted.
func (b *ChainBuilder) resolveStep(ctx context.Context, step workflow.ApprovalWorkflowStep, requester user.User) (string, error) {
	if step.ApproverID != nil && *step.ApproverID != "" {
		if *step.ApproverID == requester.ID {
			slog.Warn("Approval step omitted: approver is the requester", "workflow_id", step.WorkflowID, "level", step.Level)
			return "", nil
		}
		return *step.ApproverID, nil
	}

	if step.ApproverRole == nil {
		slog.Warn("Approval step omitted: no approver configured", "workflow_id", step.WorkflowID, "level", step.Level)
		return "", nil
	}

	role, err := workflow.ParseApproverRole(*step.ApproverRole)
	if err != nil {
		slog.Warn("Approval step omitted", "workflow_id", step.WorkflowID, "level", step.Level, "error", err)
		return "", nil
	}

	approver, err := b.resolver.Resolve(ctx, role, requester)
	if err != nil {
		return "", err
	}
	if approver == nil {
		slog.Warn("Approval step omitted: approver not found", "workflow_id", step.WorkflowID, "level", step.Level, "role", role)
		return "", nil
	}
	return approver.ID, nil
}

func (b *ChainBuilder) hrChain(ctx context.Context, requester user.User) (workflow.Chain, error) {
	hr, err := b.resolver.Resolve(ctx, workflow.ApproverRoleHRManager, requester)
	if err != nil {
		return nil, err
	}
	if hr == nil {
		return nil, nil
	}
	return workflow.Chain{{Level: workflow.HRLevel, ApproverID: hr.ID}}, nil
}

// fallbackChain routes to an HR manager, else to any active admin, else nowhere.
func (b *ChainBuilder) fallbackChain(ctx context.Context, requester user.User) (workflow.Chain, error) {
	chain, err := b.hrChain(ctx, requester)
	if err != nil || len(chain) > 0 {
		return chain, err
	}

	role := user.RoleAdmin
	admin, err := b.resolver.first(ctx, user.UserFilter{Role: &role, ExcludeUserID: &requester.ID})
	if err != nil {
		return nil, err
	}
	if admin == nil {
		slog.Warn("No approver available", "user_id", requester.ID)
		return workflow.Chain{}, nil
	}
	return workflow.Chain{{Level: workflow.HRLevel, ApproverID: admin.ID}}, nil
}
