package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecognitionLockKey builds redis keys for per-organization recognition runs.
func RecognitionLockKey(orgID int64) string {
	return fmt.Sprintf("revenue:org:%d:recognition:lock", orgID)
}

// RunLock serialises batch runs via redis SET NX. A run that cannot take the
// lock is skipped, not queued; the next cron fire picks the work up.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock returns a RunLock with the given lease duration.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

// Acquire attempts to take the named lock. It returns false when another
// holder owns it.
func (l *RunLock) Acquire(ctx context.Context, key, holder string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	return l.client.SetNX(ctx, key, holder, l.ttl).Result()
}

// Release drops the lock only when owned by holder.
func (l *RunLock) Release(ctx context.Context, key, holder string) error {
	if l == nil || l.client == nil {
		return nil
	}
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	return l.client.Eval(ctx, script, []string{key}, holder).Err()
}
