package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/leave"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/workflow"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/storage"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid or missing access token")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Leave authorization
	case errors.Is(err, leave.ErrNotCurrentApprover):
		Forbidden(w, "You are not the current approver of this leave request")
	case errors.Is(err, leave.ErrNotRequestOwner):
		Forbidden(w, "Only the requester can cancel this leave request")
	case errors.Is(err, leave.ErrHRManagerRequired):
		Forbidden(w, "HR manager role required")
	case errors.Is(err, leave.ErrLeaveRequestAccessDenied):
		Forbidden(w, "You are not allowed to view this leave request")
	case errors.Is(err, leave.ErrAttachmentNotOwned):
		Forbidden(w, "Attachment was not uploaded by the requester")

	// Leave state
	case errors.Is(err, leave.ErrLeaveRequestAlreadyProcessed):
		Conflict(w, "Leave request already processed")
	case errors.Is(err, leave.ErrCancelNotAllowed):
		Conflict(w, "Leave request can no longer be cancelled")

	// Leave validation
	case errors.Is(err, leave.ErrSplitPartsRequired):
		UnprocessableEntity(w, "SPLIT_PARTS_REQUIRED", "Split requires at least two parts")
	case errors.Is(err, leave.ErrSplitTotalMismatch):
		UnprocessableEntity(w, "SPLIT_TOTAL_MISMATCH", "Split parts must add up to the original total days")
	case errors.Is(err, leave.ErrNoApproverAvailable):
		UnprocessableEntity(w, "NO_APPROVER_AVAILABLE", "No approver available for this leave request")
	case errors.Is(err, leave.ErrLeaveTypeInactive):
		UnprocessableEntity(w, "LEAVE_TYPE_INACTIVE", "Leave type is inactive")
	case errors.Is(err, leave.ErrAttachmentRequired):
		UnprocessableEntity(w, "ATTACHMENT_REQUIRED", "This leave type requires an attachment")
	case errors.Is(err, leave.ErrAttachmentNotFound):
		UnprocessableEntity(w, "ATTACHMENT_NOT_FOUND", "Attachment file not found")
	case errors.Is(err, leave.ErrMaxDaysExceeded):
		UnprocessableEntity(w, "MAX_DAYS_EXCEEDED", "Total days exceed the maximum allowed per request")
	case errors.Is(err, user.ErrUserInactive):
		UnprocessableEntity(w, "USER_INACTIVE", "User is inactive")
	case errors.Is(err, workflow.ErrUnknownApproverRole):
		UnprocessableEntity(w, "UNKNOWN_APPROVER_ROLE", "Workflow references an unknown approver role")

	// Uploads
	case errors.Is(err, storage.ErrFileTooLarge):
		UnprocessableEntity(w, "FILE_TOO_LARGE", "File is too large")
	case errors.Is(err, storage.ErrFileExtension):
		UnprocessableEntity(w, "FILE_EXTENSION_NOT_ALLOWED", "File extension is not allowed")
	case errors.Is(err, storage.ErrInvalidPath):
		BadRequest(w, "Invalid file path", nil)

	// Not found
	case errors.Is(err, leave.ErrLeaveRequestNotFound):
		NotFound(w, "Leave request not found")
	case errors.Is(err, leave.ErrLeaveAttachmentNotFound):
		NotFound(w, "Leave attachment not found")
	case errors.Is(err, leave.ErrLeaveTypeNotFound):
		NotFound(w, "Leave type not found")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
