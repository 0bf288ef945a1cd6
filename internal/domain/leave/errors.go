package leave

import "errors"

var (
	ErrLeaveRequestNotFound         = errors.New("leave request not found")
	ErrLeaveTypeNotFound            = errors.New("leave type not found")
	ErrLeaveTypeInactive            = errors.New("leave type is inactive")
	ErrLeaveRequestAlreadyProcessed = errors.New("leave request already processed")
	ErrNotCurrentApprover           = errors.New("you are not the current approver of this leave request")
	ErrNotRequestOwner              = errors.New("only the requester can cancel this leave request")
	ErrCancelNotAllowed             = errors.New("leave request can only be cancelled while pending and before any approval")
	ErrHRManagerRequired            = errors.New("hr manager role required")
	ErrSplitPartsRequired           = errors.New("split requires at least two parts")
	ErrSplitTotalMismatch           = errors.New("split parts must add up to the original total days")
	ErrNoApproverAvailable          = errors.New("no approver available for this leave request")
	ErrAttachmentRequired           = errors.New("this leave type requires an attachment")
	ErrAttachmentNotFound           = errors.New("attachment file not found")
	ErrAttachmentNotOwned           = errors.New("attachment was not uploaded by the requester")
	ErrLeaveAttachmentNotFound      = errors.New("leave attachment not found")
	ErrMaxDaysExceeded              = errors.New("total days exceed the maximum allowed per request")
	ErrLeaveRequestAccessDenied     = errors.New("you are not allowed to view this leave request")
)
