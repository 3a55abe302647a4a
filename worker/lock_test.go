package worker

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLock(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return s, rdb
}

func lockLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("component", "test")
}

func TestRunLockExcludesConcurrentRuns(t *testing.T) {
	_, rdb := setupLock(t)
	ctx := context.Background()

	first := NewRunLock(rdb, lockLogger())
	second := NewRunLock(rdb, lockLogger())

	acquired, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, acquired)

	first.Release(ctx)

	acquired, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
}

// A release after our claim expired and another run re-acquired must
// not delete that run's lock.
func TestReleaseLeavesAnotherRunsClaimIntact(t *testing.T) {
	s, rdb := setupLock(t)
	ctx := context.Background()

	lock := NewRunLock(rdb, lockLogger())
	acquired, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	// Claim expires mid-run, another instance takes over
	require.NoError(t, s.Set(lockKey, "another-runs-token"))

	lock.Release(ctx)

	held, err := s.Get(lockKey)
	require.NoError(t, err)
	assert.Equal(t, "another-runs-token", held)
}
