package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/lock"
)

func newTestLock(t *testing.T) (*lock.ScheduleGenerationLock, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return lock.NewScheduleGenerationLock(client), mr
}

func TestAcquire_SucceedsWhenUnlocked(t *testing.T) {
	l, _ := newTestLock(t)
	held, err := l.Acquire(context.Background(), "2026", 1)
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.True(t, l.IsLocked(context.Background(), "2026"))
}

func TestAcquire_TimesOutWhenAlreadyHeld(t *testing.T) {
	l, _ := newTestLock(t)
	_, err := l.Acquire(context.Background(), "2026", 1)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "2026", 1)
	require.Error(t, err)
	var coreErr *entity.CoreError
	require.True(t, errors.As(err, &coreErr))
	assert.Equal(t, entity.KindLockAcquisitionError, coreErr.Kind)
}

func TestRelease_OnlyOwnerCanRelease(t *testing.T) {
	l, mr := newTestLock(t)
	held, err := l.Acquire(context.Background(), "2026", 1)
	require.NoError(t, err)

	ok := held.Release(context.Background())
	assert.True(t, ok)
	assert.False(t, mr.Exists(lockKeyFor("2026")))
}

func TestRelease_DoesNotTouchLockAcquiredBySomeoneElse(t *testing.T) {
	l, mr := newTestLock(t)
	held, err := l.Acquire(context.Background(), "2026", 1)
	require.NoError(t, err)

	// simulate expiry + another holder grabbing the key with a new value
	require.NoError(t, mr.Set(lockKeyFor("2026"), "someone-elses-value"))

	ok := held.Release(context.Background())
	assert.False(t, ok)
	assert.True(t, mr.Exists(lockKeyFor("2026")))
}

func TestIsLocked_FalseWhenRedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := lock.NewScheduleGenerationLock(client)
	mr.Close() // now every call fails

	assert.False(t, l.IsLocked(context.Background(), "2026"))
}

func TestTTL_ReportsRemainingSeconds(t *testing.T) {
	l, _ := newTestLock(t)
	_, err := l.Acquire(context.Background(), "2026", 1)
	require.NoError(t, err)

	ttl, err := l.TTL(context.Background(), "2026")
	require.NoError(t, err)
	assert.Greater(t, ttl, 0)
	assert.LessOrEqual(t, ttl, lock.LockTimeoutSeconds)
}

func TestTTL_ZeroWhenNotLocked(t *testing.T) {
	l, _ := newTestLock(t)
	ttl, err := l.TTL(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, 0, ttl)
}

func TestForceRelease_DeletesRegardlessOfOwnership(t *testing.T) {
	l, _ := newTestLock(t)
	_, err := l.Acquire(context.Background(), "2026", 1)
	require.NoError(t, err)

	deleted, err := l.ForceRelease(context.Background(), "2026")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, l.IsLocked(context.Background(), "2026"))
}

func TestAcquireWithRetry_PropagatesUnrecoverableLockError(t *testing.T) {
	l, _ := newTestLock(t)
	_, err := l.Acquire(context.Background(), "2026", 1)
	require.NoError(t, err)

	start := time.Now()
	_, err = lock.AcquireWithRetry(context.Background(), l, "2026", 1)
	elapsed := time.Since(start)
	require.Error(t, err)
	// a single attempt (no outer retry loop burn) since the lock error is unrecoverable
	assert.Less(t, elapsed, 5*time.Second)
}

func lockKeyFor(yearID string) string {
	return "lock:schedule_generation:" + yearID
}
