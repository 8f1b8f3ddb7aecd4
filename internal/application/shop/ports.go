// Package shop 面向账户的商品、购物车与下载用例
package shop

import (
	"context"
)

// RemoteBlobs 从远程书目服务读取附件内容
type RemoteBlobs interface {
	FetchAttachmentBlob(ctx context.Context, key string) ([]byte, error)
	FetchNoteHTML(ctx context.Context, key string) (string, error)
}

// BlobCache 附件内容缓存，未配置Redis时使用NopCache
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// NopCache 不缓存
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, string, []byte) error         { return nil }
