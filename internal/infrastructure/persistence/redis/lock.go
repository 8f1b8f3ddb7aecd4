package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// ErrLockHeld 锁已被其他进程持有
var ErrLockHeld = apperrors.New(apperrors.ErrCodeSyncInProgress, "任务正在其他进程中执行")

// 只释放自己持有的锁，避免锁过期后误删其他进程的锁
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Locker 基于SET NX PX的分布式锁
// Key设计：lock:{name}，值为随机token
type Locker struct {
	client *redis.Client
	prefix string
}

// NewLocker 创建分布式锁
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, prefix: "lock:"}
}

// Acquire 获取锁，已被持有时立即返回ErrLockHeld
// 返回的release函数只会删除本次获取的锁
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "获取分布式锁失败")
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "释放分布式锁失败")
		}
		return nil
	}
	return release, nil
}
