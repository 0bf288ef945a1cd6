package leave

import (
	"fmt"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
)

func notificationData(r LeaveRequest) map[string]interface{} {
	return map[string]interface{}{
		"leave_request_id": r.ID,
		"leave_code":       r.LeaveCode,
		"status":           string(r.Status),
		"current_level":    r.CurrentLevel,
	}
}

func newNotification(recipientID string, kind notification.NotificationType, title, message string, r LeaveRequest) notification.CreateNotificationRequest {
	id := r.ID
	return notification.CreateNotificationRequest{
		RecipientID:    recipientID,
		Type:           kind,
		Title:          title,
		Message:        message,
		Data:           notificationData(r),
		LeaveRequestID: &id,
	}
}

func SubmittedNotification(r LeaveRequest) notification.CreateNotificationRequest {
	return newNotification(r.RequesterID, notification.TypeSubmitted,
		"Leave request submitted",
		fmt.Sprintf("Your leave request %s has been submitted for approval", r.LeaveCode), r)
}

func ApprovalPendingNotification(approverID string, r LeaveRequest) notification.CreateNotificationRequest {
	return newNotification(approverID, notification.TypeApprovalPending,
		"Leave request awaiting your approval",
		fmt.Sprintf("Leave request %s is waiting for your approval", r.LeaveCode), r)
}

func ApprovedNotification(r LeaveRequest) notification.CreateNotificationRequest {
	return newNotification(r.RequesterID, notification.TypeApproved,
		"Leave request approved",
		fmt.Sprintf("Your leave request %s has been approved", r.LeaveCode), r)
}

// ProgressNotification tells the requester that approved of total levels are done.
func ProgressNotification(r LeaveRequest, approved, total int) notification.CreateNotificationRequest {
	n := newNotification(r.RequesterID, notification.TypeApproved,
		"Leave request approval in progress",
		fmt.Sprintf("Your leave request %s has been approved at %d of %d levels", r.LeaveCode, approved, total), r)
	n.Data["approved_levels"] = approved
	n.Data["total_levels"] = total
	return n
}

func RejectedNotification(r LeaveRequest) notification.CreateNotificationRequest {
	msg := fmt.Sprintf("Your leave request %s has been rejected", r.LeaveCode)
	if r.RejectReason != nil && *r.RejectReason != "" {
		msg += ": " + *r.RejectReason
	}
	return newNotification(r.RequesterID, notification.TypeRejected, "Leave request rejected", msg, r)
}

func EscalatedToHRNotification(hrID string, r LeaveRequest) notification.CreateNotificationRequest {
	return newNotification(hrID, notification.TypeEscalated,
		"Leave request escalated to you",
		fmt.Sprintf("Leave request %s was escalated to HR because approvers did not respond in time", r.LeaveCode), r)
}

func EscalatedRequesterNotification(r LeaveRequest) notification.CreateNotificationRequest {
	return newNotification(r.RequesterID, notification.TypeEscalated,
		"Leave request escalated",
		fmt.Sprintf("Your leave request %s has been escalated to HR due to timeout", r.LeaveCode), r)
}

func ReminderNotification(approverID string, r LeaveRequest, hoursLeft int) notification.CreateNotificationRequest {
	n := newNotification(approverID, notification.TypeReminder,
		"Leave request approval reminder",
		fmt.Sprintf("Leave request %s will be escalated to HR in %d hours", r.LeaveCode, hoursLeft), r)
	n.Data["hours_remaining"] = hoursLeft
	return n
}
