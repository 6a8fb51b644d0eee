package lock

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalLock 单进程实现，go-cache 的 Add 只在 key 不存在 (或已过期) 时成功，语义等同 SETNX
type LocalLock struct {
	c *gocache.Cache
}

func NewLocalLock() *LocalLock {
	return &LocalLock{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (l *LocalLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	if err := l.c.Add("lock:"+key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (l *LocalLock) Release(ctx context.Context, key string) error {
	l.c.Delete("lock:" + key)
	return nil
}
