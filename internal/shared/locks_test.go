package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRunLockAcquireRelease(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	lock := NewRunLock(client, time.Minute)
	ctx := context.Background()

	key := RecognitionLockKey(42)
	ok, err := lock.Acquire(ctx, key, "run-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire(ctx, key, "run-b")
	require.NoError(t, err)
	require.False(t, ok)

	// Release by a non-holder is a no-op.
	require.NoError(t, lock.Release(ctx, key, "run-b"))
	ok, err = lock.Acquire(ctx, key, "run-b")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, lock.Release(ctx, key, "run-a"))
	ok, err = lock.Acquire(ctx, key, "run-b")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunLockExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	lock := NewRunLock(client, time.Second)
	ctx := context.Background()

	key := RecognitionLockKey(7)
	ok, err := lock.Acquire(ctx, key, "run-a")
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Second)

	ok, err = lock.Acquire(ctx, key, "run-b")
	require.NoError(t, err)
	require.True(t, ok)
}
