package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultSweepLockKey = "habit_reminder:sweep_lock"

const releaseTimeout = 5 * time.Second

// releaseScript deletes the key only while it still holds our token, so an expired
// lock re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSweepLock is a single-flight guard shared by every instance pointing at the same Redis.
type RedisSweepLock struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *logrus.Entry
}

// NewRedisSweepLock connects to redisURL. ttl bounds how long a crashed holder blocks other sweeps.
func NewRedisSweepLock(redisURL string, ttl time.Duration, logger *logrus.Entry) (*RedisSweepLock, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedisSweepLockWithClient(redis.NewClient(opts), DefaultSweepLockKey, ttl, logger), nil
}

func NewRedisSweepLockWithClient(rdb *redis.Client, key string, ttl time.Duration, logger *logrus.Entry) *RedisSweepLock {
	return &RedisSweepLock{rdb: rdb, key: key, ttl: ttl, logger: logger}
}

func (l *RedisSweepLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to set sweep lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
			l.logger.WithError(err).Warn("Failed to release sweep lock, it will expire on its own")
		}
	}
	return release, true, nil
}

// Ping verifies the Redis connection at startup.
func (l *RedisSweepLock) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

func (l *RedisSweepLock) Close() error {
	return l.rdb.Close()
}
