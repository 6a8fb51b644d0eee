package storage

import (
	"context"
	"errors"
)

// TieredStore 两级存储 (L1: Memory, L2: Redis)
// L2 是权威数据源，L1 只做读加速；多进程部署时 L1 需带 TTL (NewMemoryStoreWithTTL)
type TieredStore struct {
	local  Persistence
	remote Persistence
}

func NewTieredStore(local, remote Persistence) *TieredStore {
	return &TieredStore{
		local:  local,
		remote: remote,
	}
}

// Write 先写 L2，成功后再写 L1；L2 失败时清掉 L1 避免读到未持久化的值
func (t *TieredStore) Write(ctx context.Context, key string, value interface{}) error {
	if err := t.remote.Write(ctx, key, value); err != nil {
		_ = t.local.Delete(ctx, key)
		return err
	}
	return t.local.Write(ctx, key, value)
}

func (t *TieredStore) Read(ctx context.Context, key string, target interface{}) error {
	// 1. 查 L1
	if err := t.local.Read(ctx, key, target); err == nil {
		return nil
	}

	// 2. 查 L2，命中后回写 L1
	err := t.remote.Read(ctx, key, target)
	if err != nil {
		return err
	}
	_ = t.local.Write(ctx, key, target)
	return nil
}

func (t *TieredStore) Delete(ctx context.Context, key string) error {
	_ = t.local.Delete(ctx, key)
	if err := t.remote.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
