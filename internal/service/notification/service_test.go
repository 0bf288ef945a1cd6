package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/notification"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/validator"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	stored    []*notification.Notification
	batches   int
	createErr error
	markedIDs []string
	markedFor string
}

func (f *fakeRepo) Create(_ context.Context, n *notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.stored = append(f.stored, n)
	return nil
}

func (f *fakeRepo) CreateBatch(_ context.Context, ns []*notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.batches++
	f.stored = append(f.stored, ns...)
	return nil
}

func (f *fakeRepo) GetByUserID(_ context.Context, userID string, _, _ int, _ bool) ([]*notification.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*notification.Notification
	for _, n := range f.stored {
		if n.RecipientID == userID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetUnreadCount(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.stored {
		if n.RecipientID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) MarkAsRead(_ context.Context, ids []string, userID string) error {
	f.markedIDs = ids
	f.markedFor = userID
	return nil
}

func (f *fakeRepo) MarkAllAsRead(_ context.Context, userID string) error {
	f.markedFor = userID
	return nil
}

func (f *fakeRepo) snapshot() []*notification.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*notification.Notification(nil), f.stored...)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafkago.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func approvalPending(recipient string) notification.CreateNotificationRequest {
	id := "0192f1a2-7b8c-7b4a-8a2b-00000000aaaa"
	return notification.CreateNotificationRequest{
		RecipientID:    recipient,
		Type:           notification.TypeApprovalPending,
		Title:          "Leave request awaiting your approval",
		Message:        "Leave request AL2501001 is waiting for your approval",
		Data:           map[string]interface{}{"leave_code": "AL2501001"},
		LeaveRequestID: &id,
	}
}

func TestNotify_StopFlushesQueue(t *testing.T) {
	repo := &fakeRepo{}
	writer := &fakeWriter{}
	svc := NewNotificationService(repo, writer, Config{FlushInterval: time.Hour, WorkerCount: 1})

	err := svc.Notify(context.Background(), approvalPending("sup"), approvalPending("mgr"))
	require.NoError(t, err)

	svc.Stop()

	stored := repo.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, "sup", stored[0].RecipientID)
	assert.Equal(t, "mgr", stored[1].RecipientID)
	assert.NotEmpty(t, stored[0].ID)
	assert.False(t, stored[0].IsRead)
	require.NotNil(t, stored[0].LeaveRequestID)

	require.Len(t, writer.msgs, 2)
	assert.Equal(t, []byte("sup"), writer.msgs[0].Key)

	var event notification.PushEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &event))
	assert.Equal(t, stored[0].ID, event.NotificationID)
	assert.Equal(t, notification.TypeApprovalPending, event.Type)
	assert.Equal(t, "AL2501001", event.Data["leave_code"])
}

func TestNotify_FlushesFullBatch(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(repo, nil, Config{BatchSize: 2, FlushInterval: time.Hour, WorkerCount: 1})
	defer svc.Stop()

	require.NoError(t, svc.Notify(context.Background(), approvalPending("a"), approvalPending("b")))

	assert.Eventually(t, func() bool {
		return len(repo.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestNotify_QueueFullFallsBackToDirectInsert(t *testing.T) {
	repo := &fakeRepo{}
	writer := &fakeWriter{}
	// No workers: the queue never drains.
	svc := newService(repo, writer, Config{QueueSize: 1})

	err := svc.Notify(context.Background(), approvalPending("first"), approvalPending("second"))
	require.NoError(t, err)

	stored := repo.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "second", stored[0].RecipientID)
	assert.Equal(t, 0, repo.batches)
	assert.Len(t, svc.queue, 1)
	require.Len(t, writer.msgs, 1)
}

func TestNotify_DirectInsertError(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("db down")}
	svc := newService(repo, nil, Config{QueueSize: 1})

	err := svc.Notify(context.Background(), approvalPending("first"), approvalPending("second"))

	assert.ErrorContains(t, err, "db down")
}

func TestDeliver_PushFailureKeepsStoredRows(t *testing.T) {
	repo := &fakeRepo{}
	writer := &fakeWriter{err: errors.New("broker unavailable")}
	svc := newService(repo, writer, Config{})

	n := svc.newNotification(approvalPending("sup"))
	err := svc.deliver(context.Background(), []*notification.Notification{n})

	assert.NoError(t, err)
	assert.Len(t, repo.snapshot(), 1)
}

func TestDeliver_StoreFailure(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("db down")}
	svc := newService(repo, &fakeWriter{}, Config{})

	err := svc.deliver(context.Background(), []*notification.Notification{svc.newNotification(approvalPending("sup"))})

	assert.ErrorContains(t, err, "failed to store notifications")
}

func TestGetNotifications(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, nil, Config{})
	read := svc.newNotification(approvalPending("emp"))
	read.IsRead = true
	repo.stored = []*notification.Notification{
		svc.newNotification(approvalPending("emp")),
		read,
		svc.newNotification(approvalPending("other")),
	}

	resp, err := svc.GetNotifications(context.Background(), "emp", 0, 500, false)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.UnreadCount)
	assert.Len(t, resp.Notifications, 2)
}

func TestMarkAsRead(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, nil, Config{})

	t.Run("invalid ids", func(t *testing.T) {
		err := svc.MarkAsRead(context.Background(), "emp", notification.MarkAsReadRequest{NotificationIDs: []string{"nope"}})
		var verrs validator.ValidationErrors
		assert.ErrorAs(t, err, &verrs)
		assert.Nil(t, repo.markedIDs)
	})

	t.Run("valid ids", func(t *testing.T) {
		ids := []string{"0192f1a2-7b8c-7b4a-8a2b-00000000bbbb"}
		err := svc.MarkAsRead(context.Background(), "emp", notification.MarkAsReadRequest{NotificationIDs: ids})
		require.NoError(t, err)
		assert.Equal(t, ids, repo.markedIDs)
		assert.Equal(t, "emp", repo.markedFor)
	})
}

func TestStop_Idempotent(t *testing.T) {
	svc := NewNotificationService(&fakeRepo{}, nil, Config{WorkerCount: 1})
	svc.Stop()
	assert.NotPanics(t, svc.Stop)
}
