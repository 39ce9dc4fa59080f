package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

// ErrLockHeld is returned when another request is processing the same cache key.
var ErrLockHeld = errors.New("processing lock held")

const processingLockTTL = 10 * time.Minute

// Locker guards one cache key against concurrent processing.
type Locker interface {
	// Acquire returns ErrLockHeld when the key is taken. release is never nil on success.
	Acquire(ctx context.Context, key models.CacheKey) (release func(), err error)
}

func lockName(key models.CacheKey) string {
	return fmt.Sprintf("processing:%s:%s:%s:%s", key.UserID, key.FileHash, key.Level, key.Role)
}

// RedisLocker uses SET NX with a TTL so a crashed holder cannot block forever.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: processingLockTTL}
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *RedisLocker) Acquire(ctx context.Context, key models.CacheKey) (func(), error) {
	name := lockName(key)
	owner := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, name, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func() {
		// the request context may already be cancelled
		releaseScript.Run(context.Background(), l.rdb, []string{name}, owner)
	}, nil
}

// NopLocker never blocks. Without Redis, concurrent processing of one key is last-write-wins.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, models.CacheKey) (func(), error) {
	return func() {}, nil
}
