package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`

// NewRedisOrderConfigLock 多实例部署使用, key 会加上 prefix
func NewRedisOrderConfigLock(redisClient redis.Cmdable, prefix string) OrderConfigLock {
	return &redisOrderConfigLock{redisClient: redisClient, prefix: prefix}
}

type redisOrderConfigLock struct {
	redisClient redis.Cmdable
	prefix      string
}

func (d *redisOrderConfigLock) NonBlockingSynchronized(ctx context.Context, key string, maxLockTimeDuration time.Duration, f func(context.Context) error) error {
	if _, ok := ctx.Value(lockKey(key)).(string); ok {
		// 之前成功上锁了,继续执行即可
		return f(ctx)
	}
	redisKey := d.prefix + key
	token := uuid.NewString()
	isLock, err := d.redisClient.SetNX(ctx, redisKey, token, maxLockTimeDuration).Result()
	if err != nil {
		return errors.WithMessagef(LockFailedError, "[redisOrderConfigLock.NonBlockingSynchronized] key: %s, err: %v", redisKey, err)
	}
	if !isLock {
		return errors.WithMessagef(LockFailedError, "[redisOrderConfigLock.NonBlockingSynchronized] key: %s has been locked", redisKey)
	}
	defer d.release(redisKey, token)
	return f(context.WithValue(ctx, lockKey(key), token))
}

func (d *redisOrderConfigLock) release(redisKey string, token string) {
	// ctx 可能已经被cancel, 释放锁用新的ctx
	reply, err := d.redisClient.Eval(context.Background(), redisReleaseScript, []string{redisKey}, token).Int64()
	if err != nil {
		slog.Error("[redisOrderConfigLock.release] release key failed", "key", redisKey, "err", err)
		return
	}
	if reply != 1 {
		slog.Warn("[redisOrderConfigLock.release] lock expired before release", "key", redisKey)
	}
}
