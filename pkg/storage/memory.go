package storage

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore 进程内持久化，默认条目永不过期
type MemoryStore struct {
	c   *gocache.Cache
	ttl time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		c:   gocache.New(gocache.NoExpiration, 0),
		ttl: gocache.NoExpiration,
	}
}

// NewMemoryStoreWithTTL 条目写入 ttl 后过期，用作 TieredStore 的 L1 时
// 其他进程写入 L2 的新值最迟 ttl 后可见
func NewMemoryStoreWithTTL(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		return NewMemoryStore()
	}
	return &MemoryStore{
		c:   gocache.New(ttl, 2*ttl),
		ttl: ttl,
	}
}

// Write 保存 JSON 副本，与 Redis 行为一致 (调用方之后修改 value 不会影响已存数据)
func (m *MemoryStore) Write(ctx context.Context, key string, value interface{}) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.c.Set(key, bytes, m.ttl)
	return nil
}

func (m *MemoryStore) Read(ctx context.Context, key string, target interface{}) error {
	val, found := m.c.Get(key)
	if !found {
		return ErrNotFound
	}
	return json.Unmarshal(val.([]byte), target)
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
