package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeApprovalPending NotificationType = "approval_pending"
	TypeApproved        NotificationType = "approved"
	TypeRejected        NotificationType = "rejected"
	TypeEscalated       NotificationType = "escalated"
	TypeReminder        NotificationType = "reminder"
	TypeSubmitted       NotificationType = "submitted"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeApprovalPending,
		TypeApproved,
		TypeRejected,
		TypeEscalated,
		TypeReminder,
		TypeSubmitted,
	}
}

// Notification represents a notification entity
type Notification struct {
	ID             string
	RecipientID    string
	Type           NotificationType
	Title          string
	Message        string
	Data           map[string]interface{}
	LeaveRequestID *string
	IsRead         bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}
