package workflow

import "errors"

var (
	ErrWorkflowNotFound    = errors.New("approval workflow not found")
	ErrUnknownApproverRole = errors.New("unknown approver role")
)
