package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld 释放时锁已过期或被其他持有者占用
var ErrNotHeld = errors.New("lock not held")

// DistributedLock 分布式锁
type DistributedLock interface {
	// Acquire 尝试获取锁, 成功时返回持有凭证, 锁已被占用时 ok=false
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release 凭证匹配时才删除
	Release(ctx context.Context, key, token string) error
}

// releaseScript 比较 value 再删除, 避免删掉别人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock 基于 SET NX PX
type RedisLock struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLock(client redis.Cmdable) *RedisLock {
	return &RedisLock{client: client, prefix: "lock:"}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
