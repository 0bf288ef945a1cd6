package notification

import (
	"context"
)

//go:generate mockgen -destination=mock/notifier_mock.go -package=mock . Notifier

// Notifier delivers leave workflow notifications. Delivery is best-effort: implementations
// must not block the caller on transport failures.
type Notifier interface {
	Notify(ctx context.Context, reqs ...CreateNotificationRequest) error
}

// Service defines the notification service interface
type Service interface {
	Notifier

	GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, userID string, req MarkAsReadRequest) error
	MarkAllAsRead(ctx context.Context, userID string) error

	// Lifecycle
	Stop()
}
