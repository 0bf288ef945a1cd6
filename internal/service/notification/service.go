package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// MessageWriter is the push transport. *kafkago.Writer satisfies it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo   notification.Repository
	writer MessageWriter
	config Config
	now    func() time.Time

	queue  chan notification.CreateNotificationRequest
	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// NewNotificationService starts the background workers. A nil writer disables push delivery;
// notifications are still stored for the in-app feed.
func NewNotificationService(repo notification.Repository, writer MessageWriter, cfg Config) notification.Service {
	s := newService(repo, writer, cfg)

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Notification service started",
		"workers", s.config.WorkerCount,
		"batch_size", s.config.BatchSize,
		"flush_interval", s.config.FlushInterval,
		"push_enabled", s.writer != nil,
	)

	return s
}

func newService(repo notification.Repository, writer MessageWriter, cfg Config) *service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}

	return &service{
		repo:   repo,
		writer: writer,
		config: cfg,
		now:    time.Now,
		queue:  make(chan notification.CreateNotificationRequest, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}
}

func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.CreateNotificationRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]*notification.Notification, len(batch))
		for i, req := range batch {
			notifications[i] = s.newNotification(req)
		}

		if err := s.deliver(ctx, notifications); err != nil {
			slog.Error("Failed to deliver notification batch", "worker", id, "count", len(notifications), "error", err)
		}

		batch = batch[:0]
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Notify queues notifications for async delivery. When the queue is full the
// notification is stored and pushed inline.
func (s *service) Notify(ctx context.Context, reqs ...notification.CreateNotificationRequest) error {
	for _, req := range reqs {
		select {
		case s.queue <- req:
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.directInsert(ctx, req); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *service) directInsert(ctx context.Context, req notification.CreateNotificationRequest) error {
	n := s.newNotification(req)
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	if err := s.publish(ctx, []*notification.Notification{n}); err != nil {
		slog.Warn("Failed to push notification", "notification_id", n.ID, "error", err)
	}
	return nil
}

// deliver stores the batch and pushes it concurrently. Push failures never undo the stored rows.
func (s *service) deliver(ctx context.Context, notifications []*notification.Notification) error {
	var g errgroup.Group

	g.Go(func() error {
		if err := s.repo.CreateBatch(ctx, notifications); err != nil {
			return fmt.Errorf("failed to store notifications: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.publish(ctx, notifications); err != nil {
			slog.Warn("Failed to push notifications", "count", len(notifications), "error", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *service) publish(ctx context.Context, notifications []*notification.Notification) error {
	if s.writer == nil || len(notifications) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(notifications))
	for _, n := range notifications {
		payload, err := json.Marshal(notification.PushEvent{
			NotificationID: n.ID,
			RecipientID:    n.RecipientID,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			Data:           n.Data,
			CreatedAt:      n.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to encode push event: %w", err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(n.RecipientID),
			Value: payload,
			Headers: []kafkago.Header{
				{Key: "notification_type", Value: []byte(n.Type)},
			},
		})
	}

	return s.writer.WriteMessages(ctx, msgs...)
}

func (s *service) newNotification(req notification.CreateNotificationRequest) *notification.Notification {
	return &notification.Notification{
		ID:             uuid.New().String(),
		RecipientID:    req.RecipientID,
		Type:           req.Type,
		Title:          req.Title,
		Message:        req.Message,
		Data:           req.Data,
		LeaveRequestID: req.LeaveRequestID,
		IsRead:         false,
		CreatedAt:      s.now(),
	}
}

// GetNotifications retrieves paginated notifications for a user
func (s *service) GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	notifications, total, err := s.repo.GetByUserID(ctx, userID, page, pageSize, unreadOnly)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = notification.ToResponse(n)
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unreadCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *service) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, userID string, req notification.MarkAsReadRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, req.NotificationIDs, userID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// Stop flushes queued notifications and waits for the workers. Safe to call more than once.
func (s *service) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("Notification service stopped")
	})
}
