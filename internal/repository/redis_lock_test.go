package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisMemberLocker_AcquireAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisMemberLocker(client, time.Second, 50*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	release, err := locker.Acquire(ctx, 7)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:settlement:member:7"))

	release()
	assert.False(t, mr.Exists("lock:settlement:member:7"))

	release, err = locker.Acquire(ctx, 7)
	require.NoError(t, err)
	release()
}

func TestRedisMemberLocker_ConflictAfterWait(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisMemberLocker(client, time.Second, 60*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	release, err := locker.Acquire(ctx, 7)
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrConcurrentSettlement)

	// other members are unaffected
	releaseOther, err := locker.Acquire(ctx, 8)
	require.NoError(t, err)
	releaseOther()
}

func TestRedisMemberLocker_WaitsForHolder(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisMemberLocker(client, time.Second, 2*time.Second, zap.NewNop())
	ctx := context.Background()

	release, err := locker.Acquire(ctx, 7)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		release()
	}()

	second, err := locker.Acquire(ctx, 7)
	require.NoError(t, err)
	second()
}

func TestRedisMemberLocker_StaleReleaseKeepsNewHolder(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisMemberLocker(client, time.Second, 10*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, 7)
	require.NoError(t, err)

	// lock expires while the first holder is still running
	mr.FastForward(2 * time.Second)

	release, err := locker.Acquire(ctx, 7)
	require.NoError(t, err)

	staleRelease()
	assert.True(t, mr.Exists("lock:settlement:member:7"), "expired holder must not delete the new lock")

	release()
	assert.False(t, mr.Exists("lock:settlement:member:7"))
}
