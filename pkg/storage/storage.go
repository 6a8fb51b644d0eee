package storage

import (
	"context"
	"errors"
)

// ErrNotFound 表示 key 不存在 (区别于存储不可用)
var ErrNotFound = errors.New("storage: key not found")

// Persistence 定义键值持久化接口
// Write 必须是单 key 的原子 upsert，读方不会观察到写了一半的值
type Persistence interface {
	// Read 读取 key，并将结果 Unmarshal 到 target 中
	Read(ctx context.Context, key string, target interface{}) error
	// Write 覆盖写入 key
	Write(ctx context.Context, key string, value interface{}) error
	// Delete 删除 key
	Delete(ctx context.Context, key string) error
}
