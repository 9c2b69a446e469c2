package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedis_LockAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedis(client, 10*time.Second, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "study_session:alice")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:study_session:alice"))

	unlock()
	unlock()
	assert.False(t, mr.Exists("lock:study_session:alice"))

	unlock, err = l.Lock(ctx, "study_session:alice")
	require.NoError(t, err)
	unlock()
}

func TestRedis_TimeoutFromOwnWait(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedis(client, 10*time.Second, 100*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRedis_TimeoutFromCallerDeadline(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedis(client, 10*time.Second, 5*time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRedis_Cancelled(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedis(client, 10*time.Second, 5*time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedis_ExpiredHolderCannotReleaseNewLock(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedis(client, time.Second, time.Second)
	ctx := context.Background()

	stale, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	defer fresh()

	stale()
	assert.True(t, mr.Exists("lock:k"), "a released stale lock must not drop the current holder")
}
