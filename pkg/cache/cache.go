package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 表示 key 不存在或已过期。
var ErrMiss = errors.New("cache miss")

// Cache 定义通用缓存接口。
// 会话层用它存放带 TTL 的解锁状态，过期即失效。
type Cache interface {
	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get 获取缓存，并将结果 Unmarshal 到 target 中
	Get(ctx context.Context, key string, target interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
}
