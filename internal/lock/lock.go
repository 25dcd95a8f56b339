// Package lock implements spec.md §4.6's distributed schedule-generation
// lock: a Redis SETNX-with-TTL mutual exclusion primitive keyed by
// academic year, so only one generation run per year is ever in flight.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/schedcu/v2/internal/entity"
)

const (
	// LockTimeoutSeconds is the maximum duration a lock is held before it
	// expires automatically, bounding a crashed holder's blast radius.
	LockTimeoutSeconds = 600
	// DefaultAcquisitionTimeoutSeconds is how long Acquire retries before
	// giving up when a caller doesn't specify its own timeout.
	DefaultAcquisitionTimeoutSeconds = 30
	initialRetryDelay                = 100 * time.Millisecond
	maxRetryDelay                    = 2 * time.Second
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// ScheduleGenerationLock is a distributed mutex for schedule generation,
// one lock per academic year, backed by Redis.
type ScheduleGenerationLock struct {
	client redis.Cmdable
}

// NewScheduleGenerationLock wraps a redis.Cmdable (a *redis.Client or
// *redis.ClusterClient) into a ScheduleGenerationLock.
func NewScheduleGenerationLock(client redis.Cmdable) *ScheduleGenerationLock {
	return &ScheduleGenerationLock{client: client}
}

func lockKey(yearID string) string {
	return "lock:schedule_generation:" + yearID
}

// Held represents an acquired lock; Release must be called exactly once
// to give it up, typically via defer immediately after Acquire succeeds.
type Held struct {
	lock    *ScheduleGenerationLock
	key     string
	value   string
}

// Acquire attempts to obtain the year's lock, retrying with exponential
// backoff (100ms, capped at 2s) until timeoutSeconds elapses. Returns a
// LockAcquisitionError CoreError if it never succeeds.
func (l *ScheduleGenerationLock) Acquire(ctx context.Context, yearID string, timeoutSeconds int) (*Held, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultAcquisitionTimeoutSeconds
	}
	key := lockKey(yearID)
	value := uuid.New().String()
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)

	delay := initialRetryDelay
	for {
		ok, err := l.client.SetNX(ctx, key, value, LockTimeoutSeconds*time.Second).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Held{lock: l, key: key, value: value}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			ttl, _ := l.TTL(ctx, yearID)
			return nil, entity.NewLockAcquisitionError(
				"could not acquire generation lock for year "+yearID+" within "+(time.Duration(timeoutSeconds)*time.Second).String()+"; another generation may be running",
				ttl,
			)
		}
		sleep := delay
		if sleep > remaining {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// Release gives up a held lock via the compare-and-delete Lua script, so
// a holder never releases a lock it no longer owns (e.g. after its TTL
// expired and another process acquired it). Safe to call from a defer
// even if the caller already released or the lock expired.
func (h *Held) Release(ctx context.Context) bool {
	result, err := h.lock.client.Eval(ctx, releaseScript, []string{h.key}, h.value).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", h.key).Msg("lock release failed, will expire on TTL")
		return false
	}
	n, _ := result.(int64)
	return n == 1
}

// IsLocked reports whether a year's generation lock currently exists.
// Redis being unavailable is treated as "not locked" (degraded mode) so
// callers aren't blocked by an observability outage.
func (l *ScheduleGenerationLock) IsLocked(ctx context.Context, yearID string) bool {
	n, err := l.client.Exists(ctx, lockKey(yearID)).Result()
	if err != nil {
		log.Warn().Err(err).Msg("lock status check failed, assuming unlocked")
		return false
	}
	return n > 0
}

// TTL returns the lock's remaining seconds, or 0 if it doesn't exist or
// has no expiry.
func (l *ScheduleGenerationLock) TTL(ctx context.Context, yearID string) (int, error) {
	ttl, err := l.client.TTL(ctx, lockKey(yearID)).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return int(ttl.Seconds()), nil
}

// ForceRelease unconditionally deletes a year's lock, bypassing
// ownership checks. Emergency-only: normal callers should let locks
// expire or release via Held.Release.
func (l *ScheduleGenerationLock) ForceRelease(ctx context.Context, yearID string) (bool, error) {
	n, err := l.client.Del(ctx, lockKey(yearID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AcquireWithRetry wraps Acquire in a bounded retry loop for transient
// Redis errors (connection resets, timeouts) distinct from lock
// contention, which Acquire already retries on its own.
func AcquireWithRetry(ctx context.Context, l *ScheduleGenerationLock, yearID string, timeoutSeconds int) (*Held, error) {
	var held *Held
	err := retry.Do(
		func() error {
			h, err := l.Acquire(ctx, yearID, timeoutSeconds)
			if err != nil {
				var coreErr *entity.CoreError
				if errors.As(err, &coreErr) && coreErr.Kind == entity.KindLockAcquisitionError {
					return retry.Unrecoverable(err)
				}
				return err
			}
			held = h
			return nil
		},
		retry.Attempts(3),
		retry.Delay(initialRetryDelay),
		retry.Context(ctx),
	)
	return held, err
}
