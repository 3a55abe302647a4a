package worker

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	lockKey = "duechaser:reminder-run"
	lockTTL = 10 * time.Minute
)

// RunLock is a Redis claim that keeps two concurrent reminder runs from
// double-processing the same reminders when the app runs on more than
// one instance or the trigger cadence cannot be guaranteed serial. The
// TTL bounds how long a crashed run can hold the claim.
type RunLock struct {
	rdb    *redis.Client
	token  string
	logger *logrus.Entry
}

func NewRunLock(rdb *redis.Client, logger *logrus.Entry) *RunLock {
	return &RunLock{
		rdb:    rdb,
		logger: logger,
	}
}

// Acquire claims the lock. It returns false without error when another
// run already holds it.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, lockKey, token, lockTTL).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// releaseScript deletes the lock only while our token still holds it.
// Check and delete must be one step: a separate GET/DEL could pass the
// token check just as the claim expires and then delete whatever lock
// the next run acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Release frees the lock if this run still holds it. Releasing someone
// else's claim (ours expired mid-run) is only logged.
func (l *RunLock) Release(ctx context.Context) {
	released, err := releaseScript.Run(ctx, l.rdb, []string{lockKey}, l.token).Int()
	if err != nil {
		l.logger.WithError(err).Warn("could not release run lock")
		return
	}
	if released == 0 {
		l.logger.Warn("run lock expired before release, another run may have started")
	}
}
