package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// BlobCache 附件内容缓存
// Key设计：blob:{attachment_key}
// 说明：缓存失败不影响下载，调用方只需记录日志
type BlobCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewBlobCache 创建附件缓存，ttl<=0时使用1小时
func NewBlobCache(client *redis.Client, ttl time.Duration) *BlobCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &BlobCache{client: client, ttl: ttl, prefix: "blob:"}
}

// Get 读取缓存，未命中时返回(nil, false, nil)
func (c *BlobCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "读取附件缓存失败")
	}
	return data, true, nil
}

// Set 写入缓存
func (c *BlobCache) Set(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "写入附件缓存失败")
	}
	return nil
}

// Invalidate 删除缓存（附件被删除或更新时）
func (c *BlobCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "删除附件缓存失败")
	}
	return nil
}
