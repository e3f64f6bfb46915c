package cache

import (
	"context"
	"errors"
	"time"

	"kayzen-ingest/domain/repository"
	"kayzen-ingest/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token, so an
// expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrNilRedisClient = errors.New("redis client is nil")

type RunLock struct {
	client *redis.Client
}

var _ repository.IRunLock = (*RunLock)(nil)

func NewRunLock(client *redis.Client) *RunLock {
	return &RunLock{client: client}
}

// Acquire takes key with SET NX for ttl. When the key is already held it
// returns acquired=false and a no-op release.
func (l *RunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	noop := func(context.Context) error { return nil }
	if l.client == nil {
		return noop, false, ErrNilRedisClient
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		logger.GetLogger().WithField("key", key).Info("Run lock held by another invocation")
		return noop, false, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
