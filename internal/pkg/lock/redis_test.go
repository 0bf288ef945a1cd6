package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client)
	l.newToken = func() string { return "token-1" }
	return l, mock
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, mock := newMockLocker(t)
	ctx := context.Background()

	mock.ExpectSetNX("lock:sweep", "token-1", time.Minute).SetVal(true)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"lock:sweep"}, "token-1").SetVal(int64(1))

	lk, ok, err := l.TryLock(ctx, "lock:sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, lk.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_AlreadyHeld(t *testing.T) {
	l, mock := newMockLocker(t)

	mock.ExpectSetNX("lock:sweep", "token-1", time.Minute).SetVal(false)

	lk, ok, err := l.TryLock(context.Background(), "lock:sweep", time.Minute)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, lk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RedisDown(t *testing.T) {
	l, mock := newMockLocker(t)

	mock.ExpectSetNX("lock:sweep", "token-1", time.Minute).SetErr(errors.New("connection refused"))

	_, ok, err := l.TryLock(context.Background(), "lock:sweep", time.Minute)

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLock_ReleaseExpired(t *testing.T) {
	l, mock := newMockLocker(t)
	ctx := context.Background()

	mock.ExpectSetNX("lock:sweep", "token-1", time.Second).SetVal(true)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"lock:sweep"}, "token-1").SetVal(int64(0))

	lk, _, err := l.TryLock(ctx, "lock:sweep", time.Second)
	require.NoError(t, err)

	assert.ErrorIs(t, lk.Release(ctx), ErrNotHeld)
}

func TestRedisLocker_Disabled(t *testing.T) {
	var l *RedisLocker

	lk, ok, err := l.TryLock(context.Background(), "lock:sweep", time.Minute)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, lk.Release(context.Background()))

	lk, ok, err = NewRedisLocker(nil).TryLock(context.Background(), "lock:sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, lk.Release(context.Background()))
}
